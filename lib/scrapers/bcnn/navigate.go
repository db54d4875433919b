package bcnn

import (
	"bytes"
	"context"
	"net/url"

	"bcnn-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

const readingsPath = "/readings"

// the anti-CSRF pair the portal rotates on every page render
type formTokens struct {
	buildId string
	token   string
}

func extractTokens(page string, doc *goquery.Document) (formTokens, error) {
	buildId, ok := htmlutil.InputValue(doc, "form_build_id")
	if !ok {
		return formTokens{}, &ParseError{Page: page, Missing: "form_build_id"}
	}
	token, ok := htmlutil.InputValue(doc, "form_token")
	if !ok {
		return formTokens{}, &ParseError{Page: page, Missing: "form_token"}
	}
	return formTokens{buildId: buildId, token: token}, nil
}

func (c *Client) getReadingsPage(ctx context.Context) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHtml).
		Get(readingsPath)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

func (c *Client) postReadingsForm(ctx context.Context, form url.Values) (*goquery.Document, string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHtml).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(form.Encode()).
		Post(readingsPath)
	if err != nil {
		return nil, "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, "", err
	}
	return doc, res.String(), nil
}

// gotoReadingsForm walks the portal to the editable readings form for
// one account: readings page, account selection, switch to edit mode.
// Tokens are re-scraped at every hop because the portal silently
// rejects a token pair from any page but the latest one.
func (c *Client) gotoReadingsForm(ctx context.Context, account string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:gotoReadingsForm")
	defer span.End()

	doc, err := c.getReadingsPage(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch readings page")
		return nil, err
	}
	tokens, err := extractTokens("readings", doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doc, _, err = c.postReadingsForm(ctx, selectAccountForm(account, tokens))
	if err != nil {
		span.SetStatus(codes.Error, "failed to select account")
		return nil, err
	}
	tokens, err = extractTokens("account selection", doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doc, _, err = c.postReadingsForm(ctx, editReadingsForm(account, tokens))
	if err != nil {
		span.SetStatus(codes.Error, "failed to switch to edit mode")
		return nil, err
	}
	tokens, err = extractTokens("edit readings", doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.tokens = tokens
	return doc, nil
}
