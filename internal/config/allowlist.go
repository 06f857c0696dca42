package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// allowListFile is the layout of ADMIN_ALLOWLIST_FILE:
//
//	emails = ["ops@example.com", "owner@example.com"]
type allowListFile struct {
	Emails []string `toml:"emails"`
}

// AdminAllowList returns ADMIN_EMAILS merged with the emails of the allow-list
// file, if one is configured.  Duplicates are kept; the guard's set
// collapses them.
func (c Config) AdminAllowList() ([]string, error) {
	out := append([]string(nil), c.AdminEmails...)
	if c.AdminAllowFile == "" {
		return out, nil
	}
	var f allowListFile
	md, err := toml.DecodeFile(c.AdminAllowFile, &f)
	if err != nil {
		return nil, fmt.Errorf("read admin allow-list %s: %w", c.AdminAllowFile, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("admin allow-list %s: unknown keys %v", c.AdminAllowFile, undec)
	}
	return append(out, f.Emails...), nil
}
