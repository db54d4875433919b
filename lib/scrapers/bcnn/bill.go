package bcnn

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const billPdfPath = "/to_payment_pdf"

// FetchBill downloads the current bill as PDF bytes. The chart-data
// call selects the account server-side, the PDF endpoint itself takes
// no parameters.
func (c *Client) FetchBill(ctx context.Context, account string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:FetchBill")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	_, err := c.FetchChartData(ctx, account)
	if err != nil {
		span.SetStatus(codes.Error, "chart data prime failed")
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(billPdfPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch bill pdf")
		return nil, err
	}
	return res.Body(), nil
}
