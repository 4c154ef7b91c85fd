package testenv

import (
	"strings"
	"testing"

	"github.com/localnerve/traits/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `-- header; with a semicolon
CREATE TABLE a (
  id INT -- trailing
);

  -- indented comment
INSERT INTO a VALUES (1);
FLUSH PRIVILEGES;
`
	stmts := SplitStatements(script)
	require.Len(t, stmts, 3)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a ("))
	assert.Equal(t, "INSERT INTO a VALUES (1)", stmts[1])
	assert.Equal(t, "FLUSH PRIVILEGES", stmts[2])

	assert.Empty(t, SplitStatements("-- nothing\n\n"))
}

func TestBootstrapScripts(t *testing.T) {
	vars := map[string]string{
		"DB_APP_DATABASE": "traits",
		"DB_APP_USER":     "reader",
		"DB_USER":         "writer",
	}

	tables := SplitStatements(data.Expand(data.InitdbMariaDBTables, vars))
	require.Len(t, tables, 5)
	for _, name := range []string{"users", "trains", "seat_reservations", "stations", "purchases"} {
		found := false
		for _, stmt := range tables {
			if strings.Contains(stmt, "traits."+name+" (") {
				found = true
			}
		}
		assert.True(t, found, name)
	}

	privileges := SplitStatements(data.Expand(data.InitdbMariaDBPrivileges, vars))
	require.Len(t, privileges, 3)
	assert.Equal(t, "GRANT SELECT ON traits.* TO 'reader'@'%'", privileges[0])
	assert.Contains(t, privileges[1], "TO 'writer'@'%'")
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("DB_IMAGE", "mariadb:11")
	t.Setenv("DB_APP_DATABASE", "ledger")
	t.Setenv("DEBUG_CONTAINER", "true")

	opts := OptionsFromEnv()
	assert.Equal(t, "mariadb:11", opts.DBImage)
	assert.Equal(t, "ledger", opts.Database)
	assert.True(t, opts.ContainerDebug)
}
