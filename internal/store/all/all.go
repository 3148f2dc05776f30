// Package all links every store backend into the binary.
//
// Import for side effects from the composition root; config selects which
// registered backend actually runs.
package all

import (
	_ "pagecms/internal/store/file"
	_ "pagecms/internal/store/mssql"
	_ "pagecms/internal/store/postgres"
	_ "pagecms/internal/store/sqlite"
)
