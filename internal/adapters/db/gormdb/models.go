package gormdb

import (
	"time"

	"gorm.io/datatypes"
)

type EntityModel struct {
	ID           uint   `gorm:"primaryKey"`
	SystemClass  string `gorm:"not null;index"`
	Name         string `gorm:"not null;index"`
	Description  string `gorm:"not null;default:''"`
	BeginFrom    string `gorm:"not null;default:''"`
	BeginTo      string `gorm:"not null;default:''"`
	BeginComment string `gorm:"not null;default:''"`
	EndFrom      string `gorm:"not null;default:''"`
	EndTo        string `gorm:"not null;default:''"`
	EndComment   string `gorm:"not null;default:''"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (EntityModel) TableName() string { return "entities" }

type LinkModel struct {
	ID           uint   `gorm:"primaryKey"`
	PropertyCode string `gorm:"not null;index"`
	DomainID     uint   `gorm:"not null;index"`
	RangeID      uint   `gorm:"not null;index"`
	TypeID       *uint
	Description  string `gorm:"not null;default:''"`
	BeginFrom    string `gorm:"not null;default:''"`
	BeginTo      string `gorm:"not null;default:''"`
	BeginComment string `gorm:"not null;default:''"`
	EndFrom      string `gorm:"not null;default:''"`
	EndTo        string `gorm:"not null;default:''"`
	EndComment   string `gorm:"not null;default:''"`
	CreatedAt    time.Time
}

func (LinkModel) TableName() string { return "links" }

type HierarchyModel struct {
	TypeID   uint   `gorm:"primaryKey;autoIncrement:false"`
	Category string `gorm:"not null;default:'custom'"`
	Multiple bool   `gorm:"not null;default:false"`
	Classes  string `gorm:"not null;default:''"`
}

func (HierarchyModel) TableName() string { return "type_hierarchies" }

type GeometryModel struct {
	ID          uint   `gorm:"primaryKey"`
	EntityID    uint   `gorm:"not null;index"`
	Shape       string `gorm:"not null"`
	Name        string `gorm:"not null;default:''"`
	Description string `gorm:"not null;default:''"`
	Type        string `gorm:"not null;default:''"`
	GeoJSON     string `gorm:"column:geojson;not null"`
	CreatedAt   time.Time
}

func (GeometryModel) TableName() string { return "gis" }

type EntityLogModel struct {
	ID        uint   `gorm:"primaryKey"`
	EntityID  uint   `gorm:"not null;index"`
	Action    string `gorm:"not null"`
	Metadata  datatypes.JSON
	CreatedAt time.Time
}

func (EntityLogModel) TableName() string { return "entity_logs" }
