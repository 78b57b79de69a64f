// Package all wires every built-in storage backend into the storage factory.
// Import it for side effects:
//
//	import _ "pudl/internal/storage/all"
//
// which makes the kinds mssql, mysql, postgres and sqlite available to
// storage.New and storage.BuildDDL. A binary that needs fewer backends can
// blank-import the individual packages instead.
package all

import (
	_ "pudl/internal/storage/mssql"
	_ "pudl/internal/storage/mysql"
	_ "pudl/internal/storage/postgres"
	_ "pudl/internal/storage/sqlite"
)
