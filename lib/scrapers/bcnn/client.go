package bcnn

import (
	"net/http/cookiejar"
	"net/url"
	"time"

	"bcnn-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/bcnn")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const acceptHtml = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
const acceptJson = "application/json, text/plain, */*"

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

// Client talks to the Center-SBK cabinet at lk.bcnn.ru. It is not
// safe for concurrent use: callers must serialize access, there is at
// most one in-flight navigation per client.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client

	login    string
	password string

	// time the portal issues readings confirmations within after the
	// final POST, waited out before the confirmation refresh
	settleDelay time.Duration

	sessionStart time.Time
	tokens       formTokens

	// account number -> device number -> latest snapshot
	devices map[string]map[string]*Device
}

type ClientOptions struct {
	BaseUrl  string
	Login    string
	Password string
	// defaults to 30s when zero, negative disables the wait
	SettleDelay time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	settleDelay := opts.SettleDelay
	if settleDelay == 0 {
		settleDelay = time.Second * 30
	}
	if settleDelay < 0 {
		settleDelay = 0
	}

	return &Client{
		baseUrl:     baseUrl,
		http:        client,
		login:       opts.Login,
		password:    opts.Password,
		settleDelay: settleDelay,
		devices:     map[string]map[string]*Device{},
	}, nil
}
