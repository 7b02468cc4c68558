package repo

import (
	"fmt"
	"log"
	"time"

	gormMysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"inkgen/config"
	"inkgen/model"
)

var Db *gorm.DB

// autoMigrateAll migrates all database models.
func autoMigrateAll(db *gorm.DB) {
	db.AutoMigrate(&model.DownloadJob{})
	db.AutoMigrate(&model.Generation{})
}

// InitMysql initializes the main MySQL connection.
func InitMysql() {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.AppConfig.DBUser,
		config.AppConfig.DBPass,
		config.AppConfig.DBHost,
		config.AppConfig.DBPort,
		config.AppConfig.DBName,
	)
	db, err := gorm.Open(gormMysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("init mysql fail", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("get sql db fail", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	autoMigrateAll(db)
	log.Println("init mysql success")
	Db = db
}
