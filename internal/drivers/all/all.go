// Package all registers every bundled driver with driver.DefaultRegistry.
package all

import (
	_ "docstore-handles/internal/drivers/memory"
	_ "docstore-handles/internal/drivers/mongo"
	_ "docstore-handles/internal/drivers/postgres"
	_ "docstore-handles/internal/drivers/redis"
	_ "docstore-handles/internal/drivers/sqlite"
)
