package server

import (
	"context"
	"os"

	"ganetisphere/internal/model"
	"ganetisphere/pkg/log"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateServer struct {
	db  *gorm.DB
	log *log.Logger
}

func NewMigrateServer(db *gorm.DB, log *log.Logger) *MigrateServer {
	return &MigrateServer{
		db:  db,
		log: log,
	}
}

func (m *MigrateServer) Start(ctx context.Context) error {
	if err := m.db.AutoMigrate(
		&model.User{},
		&model.ClusterUser{},
		&model.Cluster{},
		&model.VirtualMachine{},
		&model.Job{},
	); err != nil {
		m.log.Error("migrate error", zap.Error(err))
		return err
	}
	m.log.Info("migrate success")
	os.Exit(0)
	return nil
}

func (m *MigrateServer) Stop(ctx context.Context) error {
	m.log.Info("migrate stop")
	return nil
}
