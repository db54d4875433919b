package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bcnn-backend/lib/readingstore"
	"bcnn-backend/lib/scrapers/bcnn"
	"bcnn-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/coordinator")

// Data is one poll's worth of portal state for an account, the shape
// the host platform republishes.
type Data struct {
	Account   string
	Devices   []bcnn.Device
	Address   json.RawMessage
	Payment   *bcnn.Period
	UpdatedAt time.Time
}

// Coordinator serializes all portal traffic for one account behind a
// single lock: the client underneath is not reentrant, and the portal
// tolerates exactly one navigation sequence at a time per session.
type Coordinator struct {
	mu      sync.Mutex
	account string
	client  *bcnn.Client
	store   *readingstore.Store
	billDir string
}

type Options struct {
	Account string
	Client  *bcnn.Client
	// optional, readings history is skipped when nil
	Store *readingstore.Store
	// directory bills are saved into, defaults to the os temp dir
	BillDir string
}

func New(opts Options) *Coordinator {
	billDir := opts.BillDir
	if billDir == "" {
		billDir = os.TempDir()
	}
	return &Coordinator{
		account: opts.Account,
		client:  opts.Client,
		store:   opts.Store,
		billDir: billDir,
	}
}

func (c *Coordinator) Account() string {
	return c.account
}

// Refresh pulls devices, address and the current payment in one locked
// sequence and records the readings in the history store.
func (c *Coordinator) Refresh(ctx context.Context) (Data, error) {
	ctx, span := tracer.Start(ctx, "coordinator:Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("account", c.account))

	c.mu.Lock()
	defer c.mu.Unlock()

	data := Data{Account: c.account, UpdatedAt: timezone.Now()}

	devices, err := c.client.FetchDevices(ctx, c.account)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch devices")
		return Data{}, fmt.Errorf("refresh %s: %w", c.account, err)
	}
	data.Devices = devices

	address, err := c.client.FetchAddress(ctx, c.account)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch address")
		return Data{}, fmt.Errorf("refresh %s: %w", c.account, err)
	}
	data.Address = address

	payment, err := c.client.FetchCurrentPayment(ctx, c.account)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch current payment")
		return Data{}, fmt.Errorf("refresh %s: %w", c.account, err)
	}
	data.Payment = payment

	err = c.recordSnapshots(ctx, data)
	if err != nil {
		span.SetStatus(codes.Error, "failed to record snapshots")
		return Data{}, fmt.Errorf("refresh %s: %w", c.account, err)
	}

	return data, nil
}

func (c *Coordinator) recordSnapshots(ctx context.Context, data Data) error {
	if c.store == nil {
		return nil
	}

	var snapshots []readingstore.DeviceSnapshot
	for _, device := range data.Devices {
		value, ok := device.Value()
		if !ok {
			continue
		}
		snapshots = append(snapshots, readingstore.DeviceSnapshot{
			DeviceNumber: device.Number,
			DeviceType:   device.Type,
			Value:        value,
		})
	}
	if len(snapshots) == 0 {
		return nil
	}

	return c.store.Push(ctx, readingstore.PushRequest{
		Time:    data.UpdatedAt,
		Account: c.account,
		Devices: snapshots,
	})
}

// SendReadings submits one value per known meter. A count mismatch is
// rejected up front, before any portal traffic: submitting a partial
// set would silently resubmit stale values for the missing meters.
func (c *Coordinator) SendReadings(ctx context.Context, readings []bcnn.Reading) error {
	ctx, span := tracer.Start(ctx, "coordinator:SendReadings")
	defer span.End()
	span.SetAttributes(attribute.String("account", c.account))

	c.mu.Lock()
	defer c.mu.Unlock()

	known := c.client.DeviceCount(c.account)
	if known != len(readings) {
		span.SetStatus(codes.Error, "reading count mismatch")
		return fmt.Errorf(
			"tariff zones mismatch for %q: got %d value(s) but need %d",
			c.account, len(readings), known,
		)
	}

	return c.client.SubmitReadings(ctx, c.account, readings)
}

// SaveBill downloads the current bill and writes it under the bill
// directory, returning the path. This is the only on-disk artifact the
// client side produces.
func (c *Coordinator) SaveBill(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "coordinator:SaveBill")
	defer span.End()
	span.SetAttributes(attribute.String("account", c.account))

	c.mu.Lock()
	defer c.mu.Unlock()

	pdf, err := c.client.FetchBill(ctx, c.account)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch bill")
		return "", err
	}

	path := filepath.Join(c.billDir, fmt.Sprintf("bill_%s.pdf", c.account))
	err = os.WriteFile(path, pdf, 0600)
	if err != nil {
		span.SetStatus(codes.Error, "failed to write bill")
		return "", err
	}
	return path, nil
}
