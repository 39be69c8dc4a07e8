package tester

import (
	"os"
	"path/filepath"

	"github.com/linklab/linkhub/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	db *gorm.DB
)

// Setup opens a fresh sqlite database in a temp dir and migrates the schema.
// Each test package gets its own file, so packages can run in parallel.
func Setup() {
	_ = os.Setenv("ENV", "test")

	dir, err := os.MkdirTemp("", "linkhub-test-")
	if err != nil {
		panic(err)
	}

	db, err = gorm.Open(sqlite.Open(filepath.Join(dir, "linkhub.db")), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	err = model.Migrate(db)
	if err != nil {
		panic(err)
	}
}

func TestDB() *gorm.DB {
	return db
}
