package domain

import "time"

// MeterType is the commodity a meter measures. It is fixed at creation.
type MeterType string

const (
	MeterGas         MeterType = "gas"
	MeterWater       MeterType = "water"
	MeterElectricity MeterType = "electricity"
)

// MeterTypes lists every supported meter type.
var MeterTypes = []MeterType{MeterGas, MeterWater, MeterElectricity}

// Valid reports whether t is a supported meter type.
func (t MeterType) Valid() bool {
	_, ok := unitByType[t]
	return ok
}

// MeterStatus is the service state of a meter.
type MeterStatus string

const (
	MeterOpen   MeterStatus = "open"
	MeterClosed MeterStatus = "closed"
)

// Valid reports whether s is a known meter status.
func (s MeterStatus) Valid() bool {
	return s == MeterOpen || s == MeterClosed
}

// Unit is the measurement unit of a meter reading.
type Unit string

const (
	UnitCubicMeter   Unit = "m³"
	UnitKilowattHour Unit = "kWh"
)

var unitByType = map[MeterType]Unit{
	MeterGas:         UnitCubicMeter,
	MeterWater:       UnitCubicMeter,
	MeterElectricity: UnitKilowattHour,
}

// Meter is a utility meter identified by its EAN code.
type Meter struct {
	EAN        string      `json:"ean"`
	Status     MeterStatus `json:"status"`
	Type       MeterType   `json:"type"`
	Reading    float64     `json:"reading"`
	Unit       Unit        `json:"unit"`
	LocationID int64       `json:"location_id"`
	LastUpdate time.Time   `json:"last_update"`
}

// ReadingSource tells where an accepted reading came from.
type ReadingSource string

const (
	SourceAPI   ReadingSource = "api"
	SourceBatch ReadingSource = "batch"
)

// ReadingRecord is one entry of a meter's reading history.
type ReadingRecord struct {
	EAN        string        `json:"ean"`
	Reading    float64       `json:"reading"`
	Unit       Unit          `json:"unit"`
	RecordedAt time.Time     `json:"recorded_at"`
	RecordedBy string        `json:"recorded_by"`
	Source     ReadingSource `json:"source"`
}
