package readingstore

import (
	"context"
	"database/sql"
	"time"

	"bcnn-backend/lib/timezone"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type DeviceSnapshot struct {
	DeviceNumber string
	DeviceType   string
	Value        float64
}

type PushRequest struct {
	Time    time.Time
	Account string
	Devices []DeviceSnapshot
}

// Push records one poll's worth of meter values. Snapshots taken
// earlier the same day for the account are replaced, so repeated polls
// keep one point per day per device.
func (s Store) Push(ctx context.Context, req PushRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	startOfToday := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day(), 0, 0, 0, 0, timezone.Location).Unix()
	startOfTomorrow := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day()+1, 0, 0, 0, 0, timezone.Location).Unix()

	_, err = tx.ExecContext(
		ctx,
		`DELETE FROM reading_snapshot
		WHERE time >= ? AND time < ?
		AND account_device_id IN (
			SELECT id FROM account_device WHERE account = ?
		)`,
		startOfToday, startOfTomorrow, req.Account,
	)
	if err != nil {
		return err
	}

	for _, device := range req.Devices {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO account_device (account, device_number, device_type)
			VALUES (?, ?, ?)
			ON CONFLICT (account, device_number)
			DO UPDATE SET device_type = excluded.device_type`,
			req.Account, device.DeviceNumber, device.DeviceType,
		)
		if err != nil {
			return err
		}

		var deviceId int64
		err = tx.QueryRowContext(
			ctx,
			`SELECT id FROM account_device WHERE account = ? AND device_number = ?`,
			req.Account, device.DeviceNumber,
		).Scan(&deviceId)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO reading_snapshot (account_device_id, time, value)
			VALUES (?, ?, ?)`,
			deviceId, req.Time.Unix(), device.Value,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type ReadingSnapshot struct {
	Time  time.Time
	Value float64
}

type DeviceSeries struct {
	DeviceNumber string
	DeviceType   string
	Snapshots    []ReadingSnapshot
}

// Pull returns the recorded history for every device of the account,
// snapshots ordered oldest first.
func (s Store) Pull(ctx context.Context, account string) ([]DeviceSeries, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT d.device_number, d.device_type, r.time, r.value
		FROM account_device d
		JOIN reading_snapshot r ON r.account_device_id = d.id
		WHERE d.account = ?
		ORDER BY d.device_number, r.time`,
		account,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []DeviceSeries
	for rows.Next() {
		var number, deviceType string
		var unix int64
		var value float64
		err = rows.Scan(&number, &deviceType, &unix, &value)
		if err != nil {
			return nil, err
		}

		if len(series) == 0 || series[len(series)-1].DeviceNumber != number {
			series = append(series, DeviceSeries{
				DeviceNumber: number,
				DeviceType:   deviceType,
			})
		}
		last := &series[len(series)-1]
		last.Snapshots = append(last.Snapshots, ReadingSnapshot{
			Time:  time.Unix(unix, 0).In(timezone.Location),
			Value: value,
		})
	}
	return series, rows.Err()
}
