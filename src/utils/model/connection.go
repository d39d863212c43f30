package model

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/artcommission/anchor/src/utils/build_info"
	"github.com/artcommission/anchor/src/utils/config"
	l "github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model/sql_migrations"

	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type certFiles struct {
	key, cert, ca string
}

// Writes certificates passed through variables into temp files, libpq only accepts paths
func writeCertFiles(dbConfig *config.Database) (files *certFiles, cleanup func(), err error) {
	cleanup = func() {}
	if dbConfig.ClientKey == "" || dbConfig.ClientCert == "" || dbConfig.CaCert == "" {
		return
	}

	var paths []string
	cleanup = func() {
		for _, p := range paths {
			os.Remove(p)
		}
	}

	write := func(pattern, content string) (string, error) {
		f, err := os.CreateTemp("", pattern)
		if err != nil {
			return "", err
		}
		defer f.Close()
		paths = append(paths, f.Name())
		_, err = f.WriteString(content)
		return f.Name(), err
	}

	files = new(certFiles)
	if files.key, err = write("key.pem", dbConfig.ClientKey); err != nil {
		return
	}
	if files.cert, err = write("cert.pem", dbConfig.ClientCert); err != nil {
		return
	}
	if files.ca, err = write("ca.pem", dbConfig.CaCert); err != nil {
		return
	}
	return
}

func dsn(dbConfig *config.Database, username, password, applicationName string, certs *certFiles) string {
	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s/anchor/%s",
		dbConfig.Host,
		dbConfig.Port,
		username,
		password,
		dbConfig.Name,
		dbConfig.SslMode,
		applicationName,
		build_info.Version,
	)
	if certs != nil {
		out += fmt.Sprintf(" sslcert=%s sslkey=%s sslrootcert=%s", certs.cert, certs.key, certs.ca)
	}
	return out
}

func Connect(ctx context.Context, dbConfig *config.Database, username, password, applicationName string) (self *gorm.DB, err error) {
	log := l.NewSublogger("db")

	logger := logger.New(log,
		logger.Config{
			SlowThreshold:             500 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Error,           // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,                  // Disable color
		},
	)

	certs, cleanup, err := writeCertFiles(dbConfig)
	defer cleanup()
	if err != nil {
		return
	}
	if certs != nil {
		log.Info("Using SSL certificates from variables")
	}

	self, err = gorm.Open(postgres.Open(dsn(dbConfig, username, password, applicationName, certs)), &gorm.Config{Logger: logger})
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxIdleTime(dbConfig.ConnMaxIdleTime)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	err = ping(ctx, dbConfig, db)
	if err != nil {
		return
	}

	return
}

func NewConnection(ctx context.Context, config *config.Config, applicationName string) (self *gorm.DB, err error) {
	err = Migrate(ctx, config)
	if err != nil {
		return
	}

	return Connect(ctx, &config.Database, config.Database.User, config.Database.Password, applicationName)
}

// Applies embedded migrations using the migration user
func Migrate(ctx context.Context, config *config.Config) (err error) {
	log := l.NewSublogger("db-migrate")

	if config.Database.MigrationUser == "" || config.Database.MigrationPassword == "" {
		log.Info("Migration user not set, skipping migrations")
		return
	}

	migrations := &migrate.HttpFileSystemMigrationSource{
		FileSystem: http.FS(sql_migrations.FS),
	}

	certs, cleanup, err := writeCertFiles(&config.Database)
	defer cleanup()
	if err != nil {
		return
	}

	db, err := sql.Open("postgres", dsn(&config.Database, config.Database.MigrationUser, config.Database.MigrationPassword, "migration", certs))
	if err != nil {
		return
	}
	defer db.Close()

	err = ping(ctx, &config.Database, db)
	if err != nil {
		return
	}

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return
	}

	log.WithField("num", n).Info("Applied migrations")

	config.Database.MigrationUser = ""
	config.Database.MigrationPassword = ""

	return
}

func ping(ctx context.Context, dbConfig *config.Database, db *sql.DB) (err error) {
	if dbConfig.PingTimeout < 0 {
		// Ping disabled
		return nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbConfig.PingTimeout)
	defer cancel()

	return db.PingContext(dbCtx)
}
