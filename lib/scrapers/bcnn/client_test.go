package bcnn

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"bcnn-backend/lib/telemetry"
	"bcnn-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

const testLogin = "user@example.com"
const testPassword = "hunter2"
const testAccount = "123"

// fakePortal mimics the cabinet closely enough for the client's
// lifecycle: cookie-based login, rotating form tokens on every page
// render, the readings table, the payments table and the querydata
// RPC endpoint.
type fakePortal struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	logins        int
	tokenCounter  int
	lastBuildId   string
	lastToken     string
	submissions   []url.Values
	confirmSubmit bool
	paymentsTable string
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		t:             t,
		confirmSubmit: true,
		paymentsTable: testPaymentsTable,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/node/4", p.handleLogin)
	mux.HandleFunc("/readings", p.handleReadings)
	mux.HandleFunc("/payments", p.handlePayments)
	mux.HandleFunc("/api/v1/cabinet/querydata", p.handleQueryData)
	mux.HandleFunc("/to_payment_pdf", p.handleBill)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) client(t *testing.T) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl:     p.server.URL,
		Login:       testLogin,
		Password:    testPassword,
		SettleDelay: -1,
	})
	require.NoError(t, err)
	return client
}

func (p *fakePortal) issueTokens() string {
	p.tokenCounter++
	p.lastBuildId = fmt.Sprintf("form-%d", p.tokenCounter)
	p.lastToken = fmt.Sprintf("tok-%d", p.tokenCounter)
	return fmt.Sprintf(
		`<input type="hidden" name="form_build_id" value="%s">
<input type="hidden" name="form_token" value="%s">`,
		p.lastBuildId, p.lastToken,
	)
}

func (p *fakePortal) checkTokens(r *http.Request) bool {
	return r.PostFormValue("form_build_id") == p.lastBuildId &&
		r.PostFormValue("form_token") == p.lastToken
}

func (p *fakePortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.Method == http.MethodGet {
		fmt.Fprint(w, `<html><body><form>
<input type="hidden" name="form_build_id" value="form-login">
</form></body></html>`)
		return
	}

	r.ParseForm()
	if r.PostFormValue("name") != testLogin || r.PostFormValue("pass") != testPassword {
		fmt.Fprint(w, `<html><body>Неверный логин или пароль</body></html>`)
		return
	}
	if r.PostFormValue("form_build_id") != "form-login" {
		p.t.Error("login posted without the login page's form_build_id")
	}
	p.logins++
	http.SetCookie(w, &http.Cookie{
		Name:  "Drupal.visitor.autologout_login",
		Value: fmt.Sprint(time.Now().Unix()),
		Path:  "/",
	})
	fmt.Fprint(w, `<html><body>Личный кабинет</body></html>`)
}

const testDevicesTable = `<table>
<tr><th>Услуга</th><th>Номер ПУ</th><th></th><th>Предыдущее</th><th>Текущее</th><th>Расход</th><th></th></tr>
<tr><td colspan="7">ЛС 123</td></tr>
<tr>
  <td>Хол. вода</td><td>000000001</td><td></td><td>100.0</td><td>106.608</td><td>6.608</td>
  <td><input name="water[0][value]" onchange="cabinet_change(00000.00, this)" value=""></td>
</tr>
<tr>
  <td>Гор. вода</td><td>000000002</td><td></td><td>50.0</td><td></td><td></td>
  <td></td>
</tr>
</table>`

func (p *fakePortal) handleReadings(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.Method == http.MethodGet {
		fmt.Fprintf(w, `<html><body><form>%s</form></body></html>`, p.issueTokens())
		return
	}

	r.ParseForm()
	if !p.checkTokens(r) {
		// the portal silently rejects stale tokens with a tokenless
		// error page
		fmt.Fprint(w, `<html><body>Ошибка формы</body></html>`)
		return
	}

	switch {
	case r.PostFormValue("find_account") == "OK":
		fmt.Fprintf(w, `<html><body><form>%s</form></body></html>`, p.issueTokens())
	case r.PostFormValue("op") == "Изменить показания":
		fmt.Fprintf(
			w, `<html><body><form>%s%s</form></body></html>`,
			p.issueTokens(), testDevicesTable,
		)
	case r.PostFormValue("op") == "Передать показания":
		p.submissions = append(p.submissions, r.PostForm)
		if p.confirmSubmit {
			fmt.Fprint(w, `<html><body>Показания приняты. <a href="#">распечатать</a></body></html>`)
		} else {
			fmt.Fprint(w, `<html><body>Ошибка при передаче показаний</body></html>`)
		}
	default:
		p.t.Errorf("unexpected readings POST: %v", r.PostForm)
	}
}

const testPaymentsTable = `<table data-drupal-selector="edit-table1">
<tr><th>Период / Услуга</th><th>Входящее сальдо</th><th>Начислено</th><th>Оплачено</th><th>К оплате</th></tr>
<tr><td>Май 2024</td><td>0,00</td><td>250,00</td><td>250,00</td><td>0,00</td></tr>
<tr><td>Холодное водоснабжение</td><td>0,00</td><td>150,00</td><td>150,00</td><td>0,00</td></tr>
<tr><td>Водоотведение</td><td>0,00</td><td>100,00</td><td>100,00</td><td>0,00</td></tr>
<tr><td>Июнь 2024</td><td>0,00</td><td>260,00</td><td>260,00</td><td>0,00</td></tr>
<tr><td>Холодное водоснабжение</td><td>0,00</td><td>155,00</td><td>155,00</td><td>0,00</td></tr>
<tr><td>Водоотведение</td><td>0,00</td><td>105,00</td><td>105,00</td><td>0,00</td></tr>
<tr><td>Июль 2024</td><td>0,00</td><td>270,00</td><td>130,00</td><td>140,00</td></tr>
<tr><td>Холодное водоснабжение</td><td>0,00</td><td>160,00</td><td>80,00</td><td>80,00</td></tr>
<tr><td>Водоотведение</td><td>0,00</td><td>110,00</td><td>50,00</td><td>60,00</td></tr>
</table>`

func (p *fakePortal) handlePayments(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(w, `<html><body>%s</body></html>`, p.paymentsTable)
}

func (p *fakePortal) handleQueryData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"code":0,"message":"Данные успешно получены","data":{"accountInfo":{"accounts":[123,456],"occ":123,"view":"few"},"address":"г. Бор, ул. Ленина, д. 1"}}`)
}

func (p *fakePortal) handleBill(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	fmt.Fprint(w, "%PDF-1.4 fake bill")
}

func TestSessionReuseWithinTTL(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/bcnn")
	defer cleanup()

	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.FetchAccounts(ctx)
	require.NoError(t, err)
	_, err = client.FetchAccounts(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, portal.logins)
}

func TestSessionReauthAfterExpiry(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.FetchAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, portal.logins)

	client.sessionStart = timezone.Now().Add(-sessionTTL - time.Minute)

	_, err = client.FetchAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, portal.logins)
}

func TestAuthErrorOnBadCredentials(t *testing.T) {
	portal := newFakePortal(t)
	client, err := NewClient(ClientOptions{
		BaseUrl:     portal.server.URL,
		Login:       testLogin,
		Password:    "wrong",
		SettleDelay: -1,
	})
	require.NoError(t, err)

	_, err = client.FetchAccounts(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestFetchAccounts(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	info, err := client.FetchAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{123, 456}, info.Accounts)
	require.Equal(t, int64(123), info.Occ)
}

func TestFetchDevices(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	devices, err := client.FetchDevices(context.Background(), testAccount)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	cold := devices[0]
	require.Equal(t, "Хол. вода", cold.Type)
	require.Equal(t, "000000001", cold.Number)
	require.Equal(t, "water[0][value]", cold.ReprKey)
	require.Equal(t, "100.0", cold.PrevValue)
	require.Equal(t, "106.608", cold.CurValue)
	require.Equal(t, "6.608", cold.AmountWater)
	require.Equal(t, 5, cold.IntDigits)
	require.Equal(t, 2, cold.FracDigits)

	hot := devices[1]
	require.Equal(t, "Гор. вода", hot.Type)
	require.Equal(t, "000000002", hot.Number)
	require.Equal(t, "", hot.ReprKey)

	require.Equal(t, 2, client.DeviceCount(testAccount))
}

func TestAddMeterReadingUnknownDeviceIsNoop(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	_, err := client.FetchDevices(context.Background(), testAccount)
	require.NoError(t, err)

	client.AddMeterReading(testAccount, "999999999", "150.0")
	for _, device := range client.devices[testAccount] {
		require.Empty(t, device.NewValue)
	}
}

func TestSubmitReadings(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.FetchDevices(ctx, testAccount)
	require.NoError(t, err)

	err = client.SubmitReadings(ctx, testAccount, []Reading{
		{DeviceNumber: "000000001", Value: "150.0"},
	})
	require.NoError(t, err)

	require.Len(t, portal.submissions, 1)
	submitted := portal.submissions[0]
	require.Equal(t, "00150.00", submitted.Get("water[0][value]"))
	require.Equal(t, testAccount, submitted.Get("account_number"))
	require.Equal(t, "1", submitted.Get("ok"))
	// one reading field plus the six fixed form fields: the
	// hot-water meter has no representation key and must not add one
	require.Len(t, submitted, 7)
}

func TestSubmitReadingsWithoutPriorFetch(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	err := client.SubmitReadings(context.Background(), testAccount, []Reading{
		{DeviceNumber: "000000001", Value: "150.0"},
	})
	require.NoError(t, err)
	require.Len(t, portal.submissions, 1)
	require.Equal(t, "00150.00", portal.submissions[0].Get("water[0][value]"))
}

func TestSubmitReadingsUnconfirmed(t *testing.T) {
	portal := newFakePortal(t)
	portal.confirmSubmit = false
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.FetchDevices(ctx, testAccount)
	require.NoError(t, err)

	err = client.SubmitReadings(ctx, testAccount, []Reading{
		{DeviceNumber: "000000001", Value: "150.0"},
	})
	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
}

func TestSubmitFallsBackToCurrentValue(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.FetchDevices(ctx, testAccount)
	require.NoError(t, err)

	err = client.SubmitReadings(ctx, testAccount, nil)
	require.NoError(t, err)

	// no pending value: the cold meter falls back to its current
	// reading
	require.Equal(t, "00106.61", portal.submissions[0].Get("water[0][value]"))
}

func TestFetchCharges(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	periods, err := client.FetchCharges(context.Background(), testAccount)
	require.NoError(t, err)
	require.Len(t, periods, 3)

	july := periods[2]
	require.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, timezone.Location), july.Period)
	require.Equal(t, "270,00", july.Accrued)
	require.Equal(t, "130,00", july.Paid)
	require.Equal(t, "140,00", july.Due)
	require.Len(t, july.Services, 2)
	require.Equal(t, "Холодное водоснабжение", july.Services[0].Service)
	require.Equal(t, "80,00", july.Services[0].Due)
}

func TestFetchCurrentPayment(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	current, err := client.FetchCurrentPayment(context.Background(), testAccount)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, timezone.Location), current.Period)
	require.Equal(t, "140,00", current.Due)
}

func TestFetchCurrentPaymentEmpty(t *testing.T) {
	portal := newFakePortal(t)
	portal.paymentsTable = `<table data-drupal-selector="edit-table1">
<tr><th>Период / Услуга</th><th>Входящее сальдо</th><th>Начислено</th><th>Оплачено</th><th>К оплате</th></tr>
</table>`
	client := portal.client(t)

	current, err := client.FetchCurrentPayment(context.Background(), testAccount)
	require.NoError(t, err)
	require.Nil(t, current)
}

func TestFetchBill(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	pdf, err := client.FetchBill(context.Background(), testAccount)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake bill", string(pdf))
}

func TestFetchAddress(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	raw, err := client.FetchAddress(context.Background(), testAccount)
	require.NoError(t, err)
	require.Contains(t, string(raw), "Бор")
}
