package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/umzugtech/volumescan/internal/domain"
)

// ScanStore persists finished scan sessions and their items.
type ScanStore struct {
	db *sql.DB
}

func NewScanStore(db *sql.DB) *ScanStore {
	return &ScanStore{db: db}
}

// SaveSessionWithItems writes the session and all of its items in a single
// transaction. Either everything lands or nothing does, so a failed save can
// simply be retried.
func (s *ScanStore) SaveSessionWithItems(ctx context.Context, session *domain.ScanSession, items []*domain.ScannedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	deviceInfo, err := marshalOrDefault(session.DeviceInfo, "{}")
	if err != nil {
		return fmt.Errorf("failed to encode device info: %w", err)
	}
	location, err := marshalNullable(session.Location)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_sessions (id, customer_id, employee_id, start_time, end_time, total_volume_m3, item_count, scan_quality_score, device_info, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.CustomerID, session.EmployeeID, session.StartTime, session.EndTime,
		session.TotalVolumeM3, session.ItemCount, session.ScanQualityScore, deviceInfo, location)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for _, item := range items {
		photos, err := marshalOrDefault(item.Photos, "[]")
		if err != nil {
			return fmt.Errorf("failed to encode photos: %w", err)
		}
		packing, err := marshalOrDefault(item.PackingMaterials, "[]")
		if err != nil {
			return fmt.Errorf("failed to encode packing materials: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO scanned_items (id, session_id, customer_id, furniture_type, custom_name, room_name,
				length_cm, width_cm, height_cm, volume_m3, weight_estimate_kg,
				scan_method, confidence_score, is_fragile, requires_disassembly, packing_materials, special_instructions, photos)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, session.ID, item.CustomerID, string(item.FurnitureType), item.CustomName, string(item.RoomName),
			item.Dimensions.LengthCM, item.Dimensions.WidthCM, item.Dimensions.HeightCM, item.VolumeM3, item.WeightEstimateKg,
			string(item.ScanMethod), item.Confidence, item.IsFragile, item.RequiresDisassembly, packing, item.SpecialInstructions, photos)
		if err != nil {
			return fmt.Errorf("failed to save item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSession returns a saved session or nil when no session with the given
// id exists.
func (s *ScanStore) GetSession(ctx context.Context, id string) (*domain.ScanSession, error) {
	session := &domain.ScanSession{}
	var deviceInfo string
	var location sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, employee_id, start_time, end_time, total_volume_m3, item_count, scan_quality_score, device_info, location
		FROM scan_sessions WHERE id = ?
	`, id).Scan(&session.ID, &session.CustomerID, &session.EmployeeID, &session.StartTime, &session.EndTime,
		&session.TotalVolumeM3, &session.ItemCount, &session.ScanQualityScore, &deviceInfo, &location)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if deviceInfo != "" && deviceInfo != "{}" {
		session.DeviceInfo = &domain.DeviceInfo{}
		if err := json.Unmarshal([]byte(deviceInfo), session.DeviceInfo); err != nil {
			return nil, fmt.Errorf("failed to decode device info: %w", err)
		}
	}
	if location.Valid && location.String != "" {
		session.Location = &domain.Location{}
		if err := json.Unmarshal([]byte(location.String), session.Location); err != nil {
			return nil, fmt.Errorf("failed to decode location: %w", err)
		}
	}

	return session, nil
}

// ListItemsBySession returns all items saved under one session.
func (s *ScanStore) ListItemsBySession(ctx context.Context, sessionID string) ([]*domain.ScannedItem, error) {
	return s.listItems(ctx, `
		SELECT id, session_id, customer_id, furniture_type, custom_name, room_name,
			length_cm, width_cm, height_cm, volume_m3, weight_estimate_kg,
			scan_method, confidence_score, is_fragile, requires_disassembly, packing_materials, special_instructions, photos
		FROM scanned_items WHERE session_id = ? ORDER BY rowid ASC
	`, sessionID)
}

// ListItemsByCustomer returns every item saved for a customer across all of
// their sessions.
func (s *ScanStore) ListItemsByCustomer(ctx context.Context, customerID string) ([]*domain.ScannedItem, error) {
	return s.listItems(ctx, `
		SELECT id, session_id, customer_id, furniture_type, custom_name, room_name,
			length_cm, width_cm, height_cm, volume_m3, weight_estimate_kg,
			scan_method, confidence_score, is_fragile, requires_disassembly, packing_materials, special_instructions, photos
		FROM scanned_items WHERE customer_id = ? ORDER BY rowid ASC
	`, customerID)
}

func (s *ScanStore) listItems(ctx context.Context, query string, arg any) ([]*domain.ScannedItem, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var items []*domain.ScannedItem
	for rows.Next() {
		item := &domain.ScannedItem{}
		var furnitureType, roomName, scanMethod string
		var customName, specialInstructions sql.NullString
		var packing, photos string

		if err := rows.Scan(&item.ID, &item.SessionID, &item.CustomerID, &furnitureType, &customName, &roomName,
			&item.Dimensions.LengthCM, &item.Dimensions.WidthCM, &item.Dimensions.HeightCM, &item.VolumeM3, &item.WeightEstimateKg,
			&scanMethod, &item.Confidence, &item.IsFragile, &item.RequiresDisassembly, &packing, &specialInstructions, &photos); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		item.FurnitureType = domain.FurnitureType(furnitureType)
		item.RoomName = domain.RoomType(roomName)
		item.ScanMethod = domain.ScanMethod(scanMethod)
		item.CustomName = customName.String
		item.SpecialInstructions = specialInstructions.String

		if packing != "" && packing != "[]" {
			if err := json.Unmarshal([]byte(packing), &item.PackingMaterials); err != nil {
				return nil, fmt.Errorf("failed to decode packing materials: %w", err)
			}
		}
		if photos != "" && photos != "[]" {
			if err := json.Unmarshal([]byte(photos), &item.Photos); err != nil {
				return nil, fmt.Errorf("failed to decode photos: %w", err)
			}
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

func marshalOrDefault(v any, fallback string) (string, error) {
	if v == nil {
		return fallback, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return fallback, nil
	}
	return string(data), nil
}

func marshalNullable(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(data) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
