package config

import (
	"fmt"
	"sort"
	"strings"

	"qrverify/pkg/utils"
)

// AdminUsers maps admin usernames to bcrypt hashes. It is built once at
// startup and never mutated afterwards.
type AdminUsers struct {
	hashes map[string]string
}

// ParseAdminCredentials turns "user1:pass1,user2:pass2" into AdminUsers.
// Blank pairs and pairs without a colon are skipped. The password is
// everything after the first colon.
func ParseAdminCredentials(raw string) (AdminUsers, error) {
	users := AdminUsers{hashes: make(map[string]string)}
	for _, pair := range strings.Split(raw, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		username, password, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		username = strings.TrimSpace(username)
		if username == "" {
			continue
		}
		hash, err := utils.HashPassword(strings.TrimSpace(password))
		if err != nil {
			return AdminUsers{}, fmt.Errorf("failed to hash password for %q: %w", username, err)
		}
		users.hashes[username] = hash
	}
	return users, nil
}

// Verify reports whether the username/password pair is registered.
func (u AdminUsers) Verify(username, password string) bool {
	hash, ok := u.hashes[username]
	if !ok {
		return false
	}
	return utils.CheckPasswordHash(password, hash)
}

func (u AdminUsers) Len() int {
	return len(u.hashes)
}

func (u AdminUsers) Usernames() []string {
	names := make([]string, 0, len(u.hashes))
	for name := range u.hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
