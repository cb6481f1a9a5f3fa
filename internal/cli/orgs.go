package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// readOrgsFile parses the organization list: a JSON array of org logins.
func readOrgsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orgs file: %w", err)
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse orgs file %s: %w", path, err)
	}

	orgs := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, org := range raw {
		org = strings.TrimSpace(org)
		if org == "" || seen[org] {
			continue
		}
		seen[org] = true
		orgs = append(orgs, org)
	}
	if len(orgs) == 0 {
		return nil, fmt.Errorf("orgs file %s lists no organizations", path)
	}
	return orgs, nil
}
