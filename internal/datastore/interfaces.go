// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/errors"
	"github.com/gcombe/batnet-go/internal/logging"
)

// Interface abstracts the underlying database implementation and defines the
// operations the pipelines rely on. All mutating operations run under the
// contention-retry policy and are transactional: a Record and its Annotations
// become visible together or not at all.
type Interface interface {
	Open() error
	Close() error
	SchemaExists() (bool, error)
	Save(record *Record, annotations []Annotation) error
	RecordExists(fileName string) (bool, error)
	Get(fileName string) (Record, error)
	Delete(id uint) error
	AllRecords() ([]Record, error)
	ExportRecords() ([]Record, error)
	ArchiveCandidates(filter *ArchiveFilter) ([]ArchiveCandidate, error)
	MarkArchived(updates []ArchiveUpdate) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB     *gorm.DB
	logger *slog.Logger
}

// ArchiveFilter is the declarative selection predicate for the archival
// workflow. Zero values disable the corresponding condition, so operators can
// vary selection criteria per run without code changes.
type ArchiveFilter struct {
	ClassName         string
	Backup            string
	RequireRecordPath bool
	ExcludeLocations  []string
}

// FromSettings builds a filter from the configured defaults.
func (f *ArchiveFilter) FromSettings(s *conf.ArchiveFilterSettings) *ArchiveFilter {
	f.ClassName = s.ClassName
	f.Backup = s.Backup
	f.RequireRecordPath = s.RequireRecordPath
	f.ExcludeLocations = s.ExcludeLocations
	return f
}

func (f *ArchiveFilter) apply(q *gorm.DB) *gorm.DB {
	if f == nil {
		return q
	}
	if f.ClassName != "" {
		q = q.Where("class_name = ?", f.ClassName)
	}
	if f.Backup != "" {
		q = q.Where("backup = ?", f.Backup)
	}
	if f.RequireRecordPath {
		q = q.Where("record_path IS NOT NULL AND record_path <> ''")
	}
	if len(f.ExcludeLocations) > 0 {
		q = q.Where("location_id NOT IN ?", f.ExcludeLocations)
	}
	return q
}

// ArchiveCandidate is one record selected for archival: the minimum the
// workflow needs to locate and transcode the physical file.
type ArchiveCandidate struct {
	FileName   string
	RecordPath string
	LocationID string
}

// ArchiveUpdate records a completed transcode awaiting durable commit.
type ArchiveUpdate struct {
	FileName   string
	BackupPath string
}

// New creates a store instance based on the configured output database.
func New(settings *conf.Settings) Interface {
	logger := logging.ForService("datastore")
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{logger: logger},
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: DataStore{logger: logger},
			Settings:  settings,
		}
	default:
		return nil
	}
}

// SchemaExists reports whether the records table is present.
func (ds *DataStore) SchemaExists() (bool, error) {
	if ds.DB == nil {
		return false, dbError(errors.NewStd("database connection is not initialized"), "schema_exists", errors.PriorityCritical)
	}
	return ds.DB.Migrator().HasTable(&Record{}), nil
}

// RecordExists checks existence by the unique file name key.
func (ds *DataStore) RecordExists(fileName string) (bool, error) {
	var count int64
	err := ds.withContentionRetry("record_exists", func() error {
		return ds.DB.Model(&Record{}).Where("file_name = ?", fileName).Count(&count).Error
	})
	if err != nil {
		return false, dbError(err, "record_exists", "", "file_name", fileName)
	}
	return count > 0, nil
}

// Save stores a record and its annotations as a single transaction. The
// whole unit of work is retried on lock contention, never partially applied.
func (ds *DataStore) Save(record *Record, annotations []Annotation) error {
	err := ds.withContentionRetry("save_record", func() error {
		return ds.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
			if len(annotations) == 0 {
				return nil
			}
			for i := range annotations {
				annotations[i].RecordID = record.ID
			}
			return tx.Create(&annotations).Error
		})
	})
	if err == nil {
		return nil
	}

	switch {
	case isConstraintViolation(err):
		return conflictError(errors.Join(ErrRecordExists, err), "save_record", "duplicate_file_name",
			"file_name", record.FileName)
	case isForeignKeyViolation(err):
		return dbError(errors.Join(ErrReferential, err), "save_record", errors.PriorityHigh,
			"file_name", record.FileName)
	default:
		return dbError(err, "save_record", "", "file_name", record.FileName)
	}
}

// Get retrieves a record by its file name.
func (ds *DataStore) Get(fileName string) (Record, error) {
	var record Record
	err := ds.DB.Preload("Annotations").Where("file_name = ?", fileName).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, notFoundError("record", fileName)
		}
		return Record{}, dbError(err, "get_record", "", "file_name", fileName)
	}
	return record, nil
}

// Delete removes a record; its annotations go with it via cascade.
func (ds *DataStore) Delete(id uint) error {
	err := ds.withContentionRetry("delete_record", func() error {
		return ds.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("record_id = ?", id).Delete(&Annotation{}).Error; err != nil {
				return err
			}
			return tx.Delete(&Record{}, id).Error
		})
	})
	if err != nil {
		return dbError(err, "delete_record", "", "record_id", id)
	}
	return nil
}

// AllRecords retrieves all records.
func (ds *DataStore) AllRecords() ([]Record, error) {
	var records []Record
	if err := ds.DB.Find(&records).Error; err != nil {
		return nil, dbError(err, "all_records", "")
	}
	return records, nil
}

// ExportRecords retrieves the records eligible for the export feed: those
// carrying a serial and a capture timestamp to resolve against deployments.
func (ds *DataStore) ExportRecords() ([]Record, error) {
	var records []Record
	err := ds.DB.
		Where("serial <> '' AND record_time IS NOT NULL").
		Order("record_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, dbError(err, "export_records", "")
	}
	return records, nil
}

// ArchiveCandidates returns the records matching the selection predicate.
func (ds *DataStore) ArchiveCandidates(filter *ArchiveFilter) ([]ArchiveCandidate, error) {
	var candidates []ArchiveCandidate
	q := filter.apply(ds.DB.Model(&Record{}).
		Select("file_name", "record_path", "location_id"))
	if err := q.Scan(&candidates).Error; err != nil {
		return nil, dbError(err, "archive_candidates", "")
	}
	return candidates, nil
}

// MarkArchived applies a batch of archival-state updates in one transaction.
// The archival workflow calls this at its flush cadence; callers must not
// delete source files until this has returned without error.
func (ds *DataStore) MarkArchived(updates []ArchiveUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	err := ds.withContentionRetry("mark_archived", func() error {
		return ds.DB.Transaction(func(tx *gorm.DB) error {
			for _, u := range updates {
				res := tx.Model(&Record{}).
					Where("file_name = ?", u.FileName).
					Updates(map[string]any{"backup": "yes", "backup_path": u.BackupPath})
				if res.Error != nil {
					return res.Error
				}
			}
			return nil
		})
	})
	if err != nil {
		return dbError(err, "mark_archived", "", "batch_size", len(updates))
	}
	return nil
}

// performAutoMigration automates database migrations with error handling.
// AutoMigrate only adds what is missing; it never destroys existing data.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Record{}, &Annotation{}); err != nil {
		return dbError(err, "auto_migrate", errors.PriorityCritical, "db_type", dbType)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Warn,
			Colorful:      true,
		},
	)
}

// Close releases the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	return sqlDB.Close()
}
