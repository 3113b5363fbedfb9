package datastore

import (
	"net"
	"time"

	drivermysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/logger"
)

// MySQLStore implements Interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// mysqlDialTimeout bounds connecting and each read or write.
const mysqlDialTimeout = 10 * time.Second

// dsn builds the connection string from the output settings. Credentials
// are escaped by the driver.
func (store *MySQLStore) dsn() string {
	m := store.Settings.Output.MySQL
	cfg := drivermysql.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = mysqlDialTimeout
	cfg.ReadTimeout = mysqlDialTimeout
	cfg.WriteTimeout = mysqlDialTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to the database and migrates the schema.
func (store *MySQLStore) Open() error {
	m := store.Settings.Output.MySQL

	db, err := gorm.Open(mysql.Open(store.dsn()), &gorm.Config{Logger: createGormLogger("mysql")})
	if err != nil {
		GetLogger().Error("Failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return dbError(err, "open", "mysql")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open", "mysql")
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	store.DB = db
	GetLogger().Info("MySQL database opened",
		logger.String("host", m.Host),
		logger.String("database", m.Database))
	return performAutoMigration(db, "mysql")
}

// Close closes the database connections.
func (store *MySQLStore) Close() error {
	return closeDB(store.DB, "mysql")
}
