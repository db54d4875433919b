package bcnn

import (
	"net/url"
	"time"

	"bcnn-backend/lib/timezone"
)

// envelope of the /api/v1/cabinet/querydata RPC endpoint, which is
// keyed by a function name rather than by path
type queryPayload struct {
	Function string `json:"function"`
	Data     any    `json:"data"`
}

type occParams struct {
	Occ int64 `json:"occ"`
}

type chartDataParams struct {
	Occ         int64  `json:"occ"`
	BeginPeriod string `json:"beginPeriod"`
	EndPeriod   string `json:"endPeriod"`
}

func newAccountInfoQuery() queryPayload {
	return queryPayload{Function: "getAccountInfo", Data: struct{}{}}
}

func newAddressQuery(occ int64) queryPayload {
	return queryPayload{Function: "getAddress", Data: occParams{Occ: occ}}
}

// the chart endpoint takes YYYYMM bounds, previous month through the
// current one
func newChartDataQuery(occ int64, now time.Time) queryPayload {
	prevMonth := timezone.MonthStart(now).AddDate(0, -1, 0)
	return queryPayload{
		Function: "getChartData",
		Data: chartDataParams{
			Occ:         occ,
			BeginPeriod: prevMonth.Format("200601"),
			EndPeriod:   now.Format("200601"),
		},
	}
}

func loginForm(login, password, formBuildId string) url.Values {
	return url.Values{
		"name":          {login},
		"pass":          {password},
		"form_build_id": {formBuildId},
		"form_id":       {"user_login_form"},
		"op":            {"Войти"},
	}
}

func selectAccountForm(account string, t formTokens) url.Values {
	return url.Values{
		"account_number": {account},
		"find_account":   {"OK"},
		"form_build_id":  {t.buildId},
		"form_token":     {t.token},
		"form_id":        {"readings_form"},
	}
}

func editReadingsForm(account string, t formTokens) url.Values {
	return url.Values{
		"account_number": {account},
		"op":             {"Изменить показания"},
		"form_build_id":  {t.buildId},
		"form_token":     {t.token},
		"form_id":        {"readings_form"},
	}
}

// one field per device representation key, plus the submission markers
func submitReadingsForm(account string, fields map[string]string, t formTokens) url.Values {
	values := url.Values{
		"account_number": {account},
		"ok":             {"1"},
		"op":             {"Передать показания"},
		"form_build_id":  {t.buildId},
		"form_token":     {t.token},
		"form_id":        {"readings_form"},
	}
	for key, value := range fields {
		values.Set(key, value)
	}
	return values
}
