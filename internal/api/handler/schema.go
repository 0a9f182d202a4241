package handler

import "time"

const timeLayout = time.RFC3339

type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

// tokenRequest accepts JSON {email,password} or an OAuth2-style password
// form with username/password.
type tokenRequest struct {
	Email    string `json:"email"    form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// --- Users ---

type createUserRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"     validate:"required,oneof=consumer employee admin"`
}

type updateUserRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role"     validate:"omitempty,oneof=consumer employee admin"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// --- Locations ---

type createLocationRequest struct {
	Name    string  `json:"name"     validate:"required"`
	Lat     float64 `json:"lat"      validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon"      validate:"gte=-180,lte=180"`
	OwnerID *int64  `json:"owner_id" validate:"omitempty,gt=0"`
}

type updateLocationRequest struct {
	Name    *string  `json:"name"     validate:"omitempty,min=1"`
	Lat     *float64 `json:"lat"      validate:"omitempty,gte=-90,lte=90"`
	Lon     *float64 `json:"lon"      validate:"omitempty,gte=-180,lte=180"`
	OwnerID *int64   `json:"owner_id" validate:"omitempty,gt=0"`
}

type locationResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	OwnerID *int64  `json:"owner_id"`
}

// --- Meters ---

// createMeterRequest carries Unit only to reject clients that send one; the
// unit is always derived from the type.
type createMeterRequest struct {
	EAN        string  `json:"ean"         validate:"required,max=64"`
	Type       string  `json:"type"        validate:"required,oneof=gas water electricity"`
	Status     string  `json:"status"      validate:"omitempty,oneof=open closed"`
	Reading    float64 `json:"reading"     validate:"gte=0"`
	LocationID int64   `json:"location_id" validate:"required,gt=0"`
	Unit       *string `json:"unit"`
}

type updateMeterRequest struct {
	Reading *float64 `json:"reading"`
	Status  *string  `json:"status" validate:"omitempty,oneof=open closed"`
	Unit    *string  `json:"unit"`
}

type meterResponse struct {
	EAN        string  `json:"ean"`
	Status     string  `json:"status"`
	Type       string  `json:"type"`
	Reading    float64 `json:"reading"`
	Unit       string  `json:"unit"`
	LocationID int64   `json:"location_id"`
	LastUpdate string  `json:"last_update"`
}

type readingRecordResponse struct {
	Reading    float64 `json:"reading"`
	Unit       string  `json:"unit"`
	RecordedAt string  `json:"recorded_at"`
	RecordedBy string  `json:"recorded_by"`
	Source     string  `json:"source"`
}

type meterHistoryResponse struct {
	EAN      string                  `json:"ean"`
	Readings []readingRecordResponse `json:"readings"`
}

// --- Batch readings ---

type readingRequest struct {
	EAN     string  `json:"ean"     validate:"required"`
	Reading float64 `json:"reading" validate:"gte=0"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	BatchID string `json:"batch_id"`
	Count   int    `json:"count"`
}
