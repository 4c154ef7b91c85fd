// Package data embeds the MariaDB bootstrap scripts. Scripts reference the
// database and accounts as ${DB_APP_DATABASE}, ${DB_APP_USER} and ${DB_USER}.
package data

import (
	_ "embed"
	"os"
)

//go:embed initdb/mariadb/002-ddl-tables.sql
var InitdbMariaDBTables string

//go:embed initdb/mariadb/003-ddl-privileges.sql
var InitdbMariaDBPrivileges string

// Expand substitutes ${NAME} references in a script from vars, then from the environment
func Expand(script string, vars map[string]string) string {
	return os.Expand(script, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}
