package handler

import (
	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// --- Request → Service input ---

func toCreateUserInput(req createUserRequest) ports.CreateUserInput {
	return ports.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	}
}

func toUpdateUserInput(req updateUserRequest) ports.UpdateUserInput {
	in := ports.UpdateUserInput{Name: req.Name, Email: req.Email, Password: req.Password}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}
	return in
}

func toCreateMeterInput(req createMeterRequest) ports.CreateMeterInput {
	return ports.CreateMeterInput{
		EAN:        req.EAN,
		Type:       domain.MeterType(req.Type),
		Status:     domain.MeterStatus(req.Status),
		Reading:    req.Reading,
		LocationID: req.LocationID,
	}
}

func toUpdateMeterInput(req updateMeterRequest) ports.UpdateMeterInput {
	in := ports.UpdateMeterInput{Reading: req.Reading}
	if req.Status != nil {
		status := domain.MeterStatus(*req.Status)
		in.Status = &status
	}
	return in
}

// --- Domain → Response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt: u.UpdatedAt.UTC().Format(timeLayout),
	}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toLocationResponse(l *domain.Location) locationResponse {
	return locationResponse{ID: l.ID, Name: l.Name, Lat: l.Lat, Lon: l.Lon, OwnerID: l.OwnerID}
}

func toLocationResponses(locs []*domain.Location) []locationResponse {
	out := make([]locationResponse, 0, len(locs))
	for _, l := range locs {
		out = append(out, toLocationResponse(l))
	}
	return out
}

func toMeterResponse(m *domain.Meter) meterResponse {
	return meterResponse{
		EAN:        m.EAN,
		Status:     string(m.Status),
		Type:       string(m.Type),
		Reading:    m.Reading,
		Unit:       string(m.Unit),
		LocationID: m.LocationID,
		LastUpdate: m.LastUpdate.UTC().Format(timeLayout),
	}
}

func toMeterResponses(meters []*domain.Meter) []meterResponse {
	out := make([]meterResponse, 0, len(meters))
	for _, m := range meters {
		out = append(out, toMeterResponse(m))
	}
	return out
}

func toHistoryResponse(ean string, recs []*domain.ReadingRecord) meterHistoryResponse {
	out := meterHistoryResponse{EAN: ean, Readings: make([]readingRecordResponse, 0, len(recs))}
	for _, r := range recs {
		out.Readings = append(out.Readings, readingRecordResponse{
			Reading:    r.Reading,
			Unit:       string(r.Unit),
			RecordedAt: r.RecordedAt.UTC().Format(timeLayout),
			RecordedBy: r.RecordedBy,
			Source:     string(r.Source),
		})
	}
	return out
}
