package bcnn

import (
	"context"
	"log/slog"
	"regexp"

	"bcnn-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Device is one physical water meter tied to one account, as scraped
// from the readings table. ReprKey is the server-assigned form field
// name for submitting this meter's value; when it is empty the meter
// is shown on the page but cannot be submitted.
type Device struct {
	Account     string
	Type        string
	Number      string
	ReprKey     string
	PrevValue   string
	CurValue    string
	AmountWater string

	// pending value attached by AddMeterReading, consumed at
	// submission time
	NewValue string

	// input mask widths scraped from the row's cabinet_change hook
	IntDigits  int
	FracDigits int
}

// first non-empty of new/current/previous; readings only ever grow on
// the portal side, so an empty current value means the previous one
// still stands
func (d Device) submitValue() (string, error) {
	raw := d.NewValue
	if raw == "" {
		raw = d.CurValue
	}
	if raw == "" {
		raw = d.PrevValue
	}
	if raw == "" {
		return formatReading(0, d.IntDigits, d.FracDigits), nil
	}
	value, err := parseReading(raw)
	if err != nil {
		return "", err
	}
	return formatReading(value, d.IntDigits, d.FracDigits), nil
}

// Value reports the meter's displayed reading as a number: the
// current value when present, the previous one otherwise. Not ok when
// the portal shows no parseable reading at all.
func (d Device) Value() (float64, bool) {
	for _, raw := range []string{d.CurValue, d.PrevValue} {
		if raw == "" {
			continue
		}
		value, err := parseReading(raw)
		if err == nil {
			return value, true
		}
	}
	return 0, false
}

// fixed column layout of the readings table, a portal contract:
// type, number, [unused], previous, current, consumed
const deviceRowColumns = 6

// the hook argument is the input mask itself, e.g.
// cabinet_change(00000.00, this): the digit counts of its two parts
// are the submission widths
var formatterHook = regexp.MustCompile(`cabinet_change\((\d+)\.(\d+)`)

// FetchDevices navigates to the editable readings form for `account`
// and parses the meter table, replacing the client's device registry
// entry for that account with a fresh snapshot. Old entries are not
// merged in: reading history does not persist across fetches.
func (c *Client) FetchDevices(ctx context.Context, account string) ([]Device, error) {
	ctx, span := tracer.Start(ctx, "client:FetchDevices")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	err := c.ensureSession(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to ensure session")
		return nil, err
	}

	doc, err := c.gotoReadingsForm(ctx, account)
	if err != nil {
		span.SetStatus(codes.Error, "failed to reach readings form")
		return nil, err
	}

	devices := parseDeviceRows(ctx, account, doc)

	registry := make(map[string]*Device, len(devices))
	for i := range devices {
		registry[devices[i].Number] = &devices[i]
	}
	c.devices[account] = registry

	snapshots := make([]Device, len(devices))
	copy(snapshots, devices)
	return snapshots, nil
}

func parseDeviceRows(ctx context.Context, account string, doc *goquery.Document) []Device {
	var devices []Device
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		// header and separator rows carry no table-data cells
		if cells.Length() == 0 {
			return
		}
		if cells.Length() < deviceRowColumns {
			slog.DebugContext(ctx, "skipping short table row", "cells", cells.Length())
			return
		}

		cell := func(i int) string {
			return htmlutil.NormalizeText(cells.Eq(i).Text())
		}

		device := Device{
			Account:     account,
			Type:        cell(0),
			Number:      cell(1),
			PrevValue:   cell(3),
			CurValue:    cell(4),
			AmountWater: cell(5),
			IntDigits:   5,
			FracDigits:  2,
		}
		device.ReprKey = row.Find("input[name]").First().AttrOr("name", "")

		hook := row.Find("input[onchange]").First().AttrOr("onchange", "")
		if m := formatterHook.FindStringSubmatch(hook); m != nil {
			device.IntDigits = len(m[1])
			device.FracDigits = len(m[2])
		}

		devices = append(devices, device)
	})
	return devices
}

// AddMeterReading attaches a pending new value to the registered
// device with the given number. An unknown device number is a no-op,
// not an error: a stale caller may hand over a meter that was just
// replaced on the portal side.
func (c *Client) AddMeterReading(account, deviceNumber, value string) {
	device, ok := c.devices[account][deviceNumber]
	if !ok {
		slog.Warn(
			"ignoring reading for unknown device",
			"account", account,
			"device_number", deviceNumber,
		)
		return
	}
	device.NewValue = value
}

// DeviceCount reports how many meters the latest snapshot for the
// account holds, so callers can reject mismatched reading sets before
// any network call.
func (c *Client) DeviceCount(account string) int {
	return len(c.devices[account])
}
