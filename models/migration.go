package models

import (
	"log"

	"github.com/mmdatafocus/precast_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Inspection{}, &ChecklistItem{},
		&ChecklistTemplate{}, &ChecklistTemplateItem{},
		&Defect{}, &Measurement{}, &TestResult{},
		&Piece{}, &Job{}, &JobMetrics{},
		&Notification{}, &IssuedNumber{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
