package bcnn

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"bcnn-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const queryDataPath = "/api/v1/cabinet/querydata"

type queryEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) queryData(ctx context.Context, payload queryPayload) (json.RawMessage, error) {
	err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	var envelope queryEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptJson).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&envelope).
		Post(queryDataPath)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("querydata %s: unexpected status %d", payload.Function, res.StatusCode())
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("querydata %s: %v", payload.Function, envelope.Errors)
	}
	return envelope.Data, nil
}

// AccountInfo lists the account numbers bound to the login.
type AccountInfo struct {
	Accounts []int64 `json:"accounts"`
	Occ      int64   `json:"occ"`
	View     string  `json:"view"`
}

func (c *Client) FetchAccounts(ctx context.Context) (AccountInfo, error) {
	ctx, span := tracer.Start(ctx, "client:FetchAccounts")
	defer span.End()

	data, err := c.queryData(ctx, newAccountInfoQuery())
	if err != nil {
		span.SetStatus(codes.Error, "querydata failed")
		return AccountInfo{}, err
	}

	var parsed struct {
		AccountInfo AccountInfo `json:"accountInfo"`
	}
	err = json.Unmarshal(data, &parsed)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode account info")
		return AccountInfo{}, err
	}
	return parsed.AccountInfo, nil
}

// FetchAddress returns the portal's address payload for the account
// as-is. The shape is not part of the portal's stable contract, so it
// is passed through raw for the host to display.
func (c *Client) FetchAddress(ctx context.Context, account string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "client:FetchAddress")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	occ, err := accountOcc(account)
	if err != nil {
		return nil, err
	}
	return c.queryData(ctx, newAddressQuery(occ))
}

// FetchChartData queries last month through this month of usage. The
// call also primes server-side session state: the payments page and
// the PDF bill reflect the right account only after it.
func (c *Client) FetchChartData(ctx context.Context, account string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "client:FetchChartData")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	occ, err := accountOcc(account)
	if err != nil {
		return nil, err
	}
	return c.queryData(ctx, newChartDataQuery(occ, timezone.Now()))
}

func accountOcc(account string) (int64, error) {
	occ, err := strconv.ParseInt(account, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("account number %q is not numeric: %w", account, err)
	}
	return occ, nil
}
