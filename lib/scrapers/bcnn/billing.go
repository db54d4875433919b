package bcnn

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bcnn-backend/lib/htmlutil"
	"bcnn-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const paymentsPath = "/payments"

// localized column labels of the payments table. An unmapped label is
// a hard error: mis-attributing billing totals is worse than failing
// the fetch.
var paymentColumns = map[string]string{
	"Период / Услуга": "period_or_service",
	"Входящее сальдо": "opening_balance",
	"Начислено":       "accrued",
	"Оплачено":        "paid",
	"К оплате":        "due_payment",
}

type chargeAmounts struct {
	OpeningBalance string
	Accrued        string
	Paid           string
	Due            string
}

func (a *chargeAmounts) set(column, value string) bool {
	switch column {
	case "opening_balance":
		a.OpeningBalance = value
	case "accrued":
		a.Accrued = value
	case "paid":
		a.Paid = value
	case "due_payment":
		a.Due = value
	default:
		return false
	}
	return true
}

// ServiceCharge is one itemized line of a billing period.
type ServiceCharge struct {
	Service string
	chargeAmounts
}

// Period is one statement period: the summary amounts plus the
// per-service breakdown beneath it.
type Period struct {
	Period time.Time
	chargeAmounts
	Services []ServiceCharge
}

// FetchCharges scrapes the payments-history table into billing
// periods. The chart-data call comes first: without it the payments
// page renders the previously selected account.
func (c *Client) FetchCharges(ctx context.Context, account string) ([]Period, error) {
	ctx, span := tracer.Start(ctx, "client:FetchCharges")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	_, err := c.FetchChartData(ctx, account)
	if err != nil {
		span.SetStatus(codes.Error, "chart data prime failed")
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHtml).
		Get(paymentsPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch payments page")
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse payments page")
		return nil, err
	}

	periods, err := parsePayments(doc, timezone.Now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return periods, nil
}

func parsePayments(doc *goquery.Document, now time.Time) ([]Period, error) {
	table := doc.Find("table[data-drupal-selector=edit-table1]")
	if table.Length() == 0 {
		return nil, &ParseError{Page: "payments", Missing: "table edit-table1"}
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return nil, &ParseError{Page: "payments", Missing: "table rows"}
	}

	var columns []string
	var headerErr error
	rows.First().Find("th").Each(func(_ int, th *goquery.Selection) {
		label := htmlutil.NormalizeText(th.Text())
		canonical, ok := paymentColumns[label]
		if !ok && headerErr == nil {
			headerErr = &ParseError{
				Page:    "payments",
				Missing: fmt.Sprintf("mapping for column %q", label),
			}
		}
		columns = append(columns, canonical)
	})
	if headerErr != nil {
		return nil, headerErr
	}
	if len(columns) == 0 {
		return nil, &ParseError{Page: "payments", Missing: "header columns"}
	}

	dataRows := make([]*goquery.Selection, 0, rows.Length()-1)
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		dataRows = append(dataRows, row)
	})

	// an empty table means no billing periods yet, not a failure
	if len(dataRows) == 0 {
		return nil, nil
	}
	// three periods of summary+services each is a portal observation,
	// not a documented guarantee; refuse to guess at anything else
	if len(dataRows)%3 != 0 {
		return nil, &ParseError{
			Page:    "payments",
			Missing: fmt.Sprintf("row count divisible by 3, got %d", len(dataRows)),
		}
	}

	batchSize := len(dataRows) / 3
	var periods []Period
	for start := 0; start < len(dataRows); start += batchSize {
		batch := dataRows[start : start+batchSize]

		var period Period
		summary := rowValues(columns, batch[0])
		for i, value := range summary {
			parsed := parsePeriod(value, now)
			if !sameDay(parsed, now) {
				period.Period = parsed
				summary[i] = ""
				break
			}
		}
		for i, value := range summary {
			period.set(columns[i], value)
		}

		for _, row := range batch[1:] {
			values := rowValues(columns, row)
			var charge ServiceCharge
			for i, value := range values {
				if !charge.set(columns[i], value) {
					charge.Service = value
				}
			}
			period.Services = append(period.Services, charge)
		}

		periods = append(periods, period)
	}
	return periods, nil
}

func rowValues(columns []string, row *goquery.Selection) []string {
	values := make([]string, len(columns))
	row.Find("td").Each(func(i int, td *goquery.Selection) {
		if i < len(values) {
			values[i] = htmlutil.NormalizeText(td.Text())
		}
	})
	return values
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// FetchCurrentPayment returns the period with the latest period label,
// which is the one still open for payment. A nil result without error
// means the portal returned no periods at all.
func (c *Client) FetchCurrentPayment(ctx context.Context, account string) (*Period, error) {
	ctx, span := tracer.Start(ctx, "client:FetchCurrentPayment")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	periods, err := c.FetchCharges(ctx, account)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}

	latest := &periods[0]
	for i := range periods[1:] {
		if periods[i+1].Period.After(latest.Period) {
			latest = &periods[i+1]
		}
	}
	return latest, nil
}
