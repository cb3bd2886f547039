package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Aashish23092/conciliador/dto"
)

// expedienteRecord is the table row of an expediente. The nested blocks are
// stored as JSON columns.
type expedienteRecord struct {
	ID               uint             `gorm:"primaryKey"`
	NumeroExpediente string           `gorm:"size:16;not null;uniqueIndex:idx_expediente_cliente"`
	Cliente          string           `gorm:"size:64;not null;uniqueIndex:idx_expediente_cliente"`
	Datos            dto.Datos        `gorm:"serializer:json"`
	Pedidos          []dto.PedidoLine `gorm:"serializer:json"`
	Metadatos        dto.Metadatos    `gorm:"serializer:json"`
	EstadoGeneral    string           `gorm:"size:16;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (expedienteRecord) TableName() string { return "expedientes" }

// pedidoIndexRecord maps an order number to the expediente holding it.
type pedidoIndexRecord struct {
	NumeroPedido string `gorm:"primaryKey;size:16"`
	ExpedienteID uint   `gorm:"primaryKey"`
}

func (pedidoIndexRecord) TableName() string { return "expediente_pedidos" }

// facturaIndexRecord maps a normalized invoice number to the expediente
// holding it.
type facturaIndexRecord struct {
	NumeroFactura string `gorm:"primaryKey;size:64"`
	ExpedienteID  uint   `gorm:"primaryKey"`
}

func (facturaIndexRecord) TableName() string { return "expediente_facturas" }

func toRecord(doc *dto.Expediente) expedienteRecord {
	return expedienteRecord{
		NumeroExpediente: doc.NumeroExpediente,
		Cliente:          doc.Cliente,
		Datos:            doc.Datos,
		Pedidos:          doc.Pedidos,
		Metadatos:        doc.Metadatos,
		EstadoGeneral:    doc.Metadatos.EstadoGeneral,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func (r expedienteRecord) toDTO() dto.Expediente {
	return dto.Expediente{
		NumeroExpediente: r.NumeroExpediente,
		Cliente:          r.Cliente,
		Datos:            r.Datos,
		Pedidos:          r.Pedidos,
		Metadatos:        r.Metadatos,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func indexRows(id uint, doc *dto.Expediente) []pedidoIndexRecord {
	orders := orderNumbers(doc)
	rows := make([]pedidoIndexRecord, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, pedidoIndexRecord{NumeroPedido: o, ExpedienteID: id})
	}
	return rows
}

func invoiceRows(id uint, doc *dto.Expediente) []facturaIndexRecord {
	invoices := invoiceNumbers(doc)
	rows := make([]facturaIndexRecord, 0, len(invoices))
	for _, f := range invoices {
		rows = append(rows, facturaIndexRecord{NumeroFactura: f, ExpedienteID: id})
	}
	return rows
}

// writeIndex replaces the index rows of expediente id.
func writeIndex(tx *gorm.DB, id uint, doc *dto.Expediente) error {
	if err := tx.Where("expediente_id = ?", id).Delete(&pedidoIndexRecord{}).Error; err != nil {
		return err
	}
	if err := tx.Where("expediente_id = ?", id).Delete(&facturaIndexRecord{}).Error; err != nil {
		return err
	}
	if rows := indexRows(id, doc); len(rows) > 0 {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	if rows := invoiceRows(id, doc); len(rows) > 0 {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

// PostgresStore keeps expedientes in PostgreSQL through gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string, logger *zerolog.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, dto.NewStoreError("connect", "postgres", err)
	}
	if err := db.AutoMigrate(&expedienteRecord{}, &pedidoIndexRecord{}, &facturaIndexRecord{}); err != nil {
		return nil, dto.NewStoreError("migrate", "postgres", err)
	}
	logger.Info().Msg("connected to postgres")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) find(tx *gorm.DB, key dto.ExpedienteKey) (*expedienteRecord, error) {
	var rec expedienteRecord
	err := tx.Where("numero_expediente = ? AND cliente = ?", key.NumeroExpediente, key.Cliente).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dto.NewNotFoundError("expediente", key.String())
	}
	if err != nil {
		return nil, dto.NewStoreError("get", key.String(), err)
	}
	return &rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, key dto.ExpedienteKey) (*dto.Expediente, error) {
	rec, err := s.find(s.db.WithContext(ctx), key)
	if err != nil {
		return nil, err
	}
	doc := rec.toDTO()
	return &doc, nil
}

func (s *PostgresStore) Insert(ctx context.Context, doc *dto.Expediente) error {
	if err := validateDoc(doc); err != nil {
		return err
	}
	key := doc.Key().String()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toRecord(doc)
		if err := tx.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return dto.NewStoreError("insert", key, dto.ErrAlreadyExists)
			}
			return dto.NewStoreError("insert", key, err)
		}
		if err := writeIndex(tx, rec.ID, doc); err != nil {
			return dto.NewStoreError("index", key, err)
		}
		return nil
	})
}

func (s *PostgresStore) Update(ctx context.Context, doc *dto.Expediente) error {
	if err := validateDoc(doc); err != nil {
		return err
	}
	key := doc.Key()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.find(tx, key)
		if err != nil {
			return err
		}

		next := toRecord(doc)
		next.ID = rec.ID
		next.CreatedAt = rec.CreatedAt
		if err := tx.Save(&next).Error; err != nil {
			return dto.NewStoreError("update", key.String(), err)
		}

		if err := writeIndex(tx, rec.ID, doc); err != nil {
			return dto.NewStoreError("index", key.String(), err)
		}
		return nil
	})
}

func (s *PostgresStore) FindByOrder(ctx context.Context, numeroPedido string) ([]dto.Expediente, error) {
	db := s.db.WithContext(ctx)
	ids := db.Model(&pedidoIndexRecord{}).Select("expediente_id").Where("numero_pedido = ?", numeroPedido)

	var recs []expedienteRecord
	if err := db.Where("id IN (?)", ids).Order("cliente, numero_expediente").Find(&recs).Error; err != nil {
		return nil, dto.NewStoreError("find", numeroPedido, err)
	}
	return toDTOs(recs), nil
}

func (s *PostgresStore) FindByInvoice(ctx context.Context, factura string) ([]dto.Expediente, error) {
	db := s.db.WithContext(ctx)
	ids := db.Model(&facturaIndexRecord{}).Select("expediente_id").Where("numero_factura = ?", dto.NormalizeInvoice(factura))

	var recs []expedienteRecord
	if err := db.Where("id IN (?)", ids).Order("cliente, numero_expediente").Find(&recs).Error; err != nil {
		return nil, dto.NewStoreError("find", factura, err)
	}
	return toDTOs(recs), nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]dto.Expediente, int, error) {
	q := s.db.WithContext(ctx).Model(&expedienteRecord{})
	if filter.Cliente != "" {
		q = q.Where("cliente = ?", filter.Cliente)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, dto.NewStoreError("count", filter.Cliente, err)
	}

	q = q.Order("cliente, numero_expediente").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var recs []expedienteRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, 0, dto.NewStoreError("list", filter.Cliente, err)
	}
	return toDTOs(recs), int(total), nil
}

func toDTOs(recs []expedienteRecord) []dto.Expediente {
	out := make([]dto.Expediente, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDTO())
	}
	return out
}
