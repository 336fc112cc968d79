package cacheplugin

import "github.com/goforj/cacheplugin/cachecore"

// Driver identifies a storage backend.
type Driver = cachecore.Driver

const (
	DriverNull   = cachecore.DriverNull
	DriverFile   = cachecore.DriverFile
	DriverMemory = cachecore.DriverMemory
	DriverSQLite = cachecore.DriverSQLite
	DriverSQL    = cachecore.DriverSQL
	DriverRedis  = cachecore.DriverRedis
	DriverNATS   = cachecore.DriverNATS
	DriverDynamo = cachecore.DriverDynamo
)

// Location is the resolved cache location owned by a handle.
type Location = cachecore.Location
