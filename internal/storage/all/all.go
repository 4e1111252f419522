// Package all registers every storage backend with the factory registry.
// Blank-import it from main so the -storage flag can select any of them.
package all

import (
	_ "ecoroofs/internal/storage/mssql"
	_ "ecoroofs/internal/storage/postgres"
	_ "ecoroofs/internal/storage/sqlite"
)
