package bcnn

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Reading is one caller-supplied meter value, keyed by the meter's
// serial number as shown on the portal.
type Reading struct {
	DeviceNumber string
	Value        string
}

// the portal answers 200 for accepted and rejected submissions alike;
// the "print receipt" affordance only renders on success
const confirmationMarker = "распечатать"

// SubmitReadings attaches the supplied values to the account's device
// registry and posts the assembled readings form. The readings form is
// re-navigated immediately before the POST: tokens fetched earlier
// have usually been rotated away by then.
func (c *Client) SubmitReadings(ctx context.Context, account string, readings []Reading) error {
	ctx, span := tracer.Start(ctx, "client:SubmitReadings")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	err := c.ensureSession(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to ensure session")
		return err
	}

	if len(c.devices[account]) == 0 {
		_, err := c.FetchDevices(ctx, account)
		if err != nil {
			span.SetStatus(codes.Error, "failed to fetch devices")
			return err
		}
	}
	for _, reading := range readings {
		c.AddMeterReading(account, reading.DeviceNumber, reading.Value)
	}

	_, err = c.gotoReadingsForm(ctx, account)
	if err != nil {
		span.SetStatus(codes.Error, "failed to reach readings form")
		return err
	}

	fields := map[string]string{}
	for _, device := range c.devices[account] {
		if device.ReprKey == "" {
			slog.WarnContext(
				ctx, "device has no representation key, not submittable",
				"account", account,
				"device_number", device.Number,
			)
			continue
		}
		value, err := device.submitValue()
		if err != nil {
			span.SetStatus(codes.Error, "unparseable reading value")
			return err
		}
		fields[device.ReprKey] = value
	}

	_, body, err := c.postReadingsForm(ctx, submitReadingsForm(account, fields, c.tokens))
	if err != nil {
		span.SetStatus(codes.Error, "failed to post readings")
		return err
	}
	if !strings.Contains(body, confirmationMarker) {
		span.SetStatus(codes.Error, "confirmation marker absent")
		return &SubmitError{Account: account}
	}

	slog.InfoContext(ctx, "readings submitted", "account", account, "devices", len(fields))

	// let the portal finish processing before refreshing; pragmatic
	// wait, not a guarantee
	if c.settleDelay > 0 {
		select {
		case <-time.After(c.settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, err = c.getReadingsPage(ctx)
	if err != nil {
		slog.WarnContext(ctx, "post-submission refresh failed", "err", err)
	}
	return nil
}
