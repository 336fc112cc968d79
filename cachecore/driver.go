package cachecore

// Driver identifies a storage backend.
type Driver string

const (
	DriverNull   Driver = "null"
	DriverFile   Driver = "file"
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverSQL    Driver = "sql"
	DriverRedis  Driver = "redis"
	DriverNATS   Driver = "nats"
	DriverDynamo Driver = "dynamodb"
)

// Drivers lists every storage driver known to the plugin, in registration order.
func Drivers() []Driver {
	return []Driver{DriverFile, DriverMemory, DriverNull, DriverSQLite, DriverSQL, DriverRedis, DriverNATS, DriverDynamo}
}
