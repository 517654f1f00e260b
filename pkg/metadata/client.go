package metadata

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
	"github.com/sirosfoundation/go-xrd/pkg/identifier"
	"github.com/sirosfoundation/go-xrd/pkg/transport"
)

// Message protocol constants.
const (
	// ProtocolVersion is the message protocol version sent in every SOAP
	// request header.
	ProtocolVersion = "4.0"
	// RESTVersion is the path prefix of the REST metadata interface.
	RESTVersion = "r1"
)

// Metaservice codes.
const (
	serviceListMethods    = "listMethods"
	serviceAllowedMethods = "allowedMethods"
	serviceGetWSDL        = "getWsdl"
	serviceGetOpenAPI     = "getOpenAPI"
)

// Request identifies the parties of a service listing query. Client is the
// requesting member or subsystem; Producer is the subsystem whose services
// are listed.
type Request struct {
	Client   identifier.ClientID
	Producer identifier.ClientID
}

// Client issues metadata requests against security servers. A zero-option
// client uses transport defaults and plain HTTP for bare addresses; mutual
// TLS material in the transport configuration switches bare addresses to
// HTTPS.
type Client struct {
	config *transport.Config
	http   *transport.Client
	secure bool
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the transport configuration, including TLS material
// and the per-request timeout.
func WithTransport(config *transport.Config) Option {
	return func(c *Client) {
		c.config = config
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a metadata client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		config: transport.DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = transport.NewClient(c.config)
	c.secure = c.config.Secure()
	return c
}

// ListMethods lists the services offered by the producer, in the order the
// security server reports them.
func (c *Client) ListMethods(ctx context.Context, addr string, req Request) ([]identifier.ServiceID, error) {
	return c.methods(ctx, addr, req, serviceListMethods)
}

// AllowedMethods lists the producer's services that the client is allowed to
// invoke.
func (c *Client) AllowedMethods(ctx context.Context, addr string, req Request) ([]identifier.ServiceID, error) {
	return c.methods(ctx, addr, req, serviceAllowedMethods)
}

func (c *Client) methods(ctx context.Context, addr string, req Request, method string) ([]identifier.ServiceID, error) {
	service := metaservice(req.Producer, method)
	envelope, err := buildEnvelope(req.Client, service, bodyElement(method))
	if err != nil {
		return nil, err
	}

	root, _, err := c.soapCall(ctx, addr, envelope)
	if err != nil {
		return nil, err
	}
	return parseMethodsResponse(root, method)
}

// GetWSDL retrieves the WSDL service description of a SOAP service. The
// document is returned as an opaque blob; WSDLMethods extracts its
// operations.
func (c *Client) GetWSDL(ctx context.Context, addr string, client identifier.ClientID, service identifier.ServiceID) ([]byte, error) {
	if service.ServiceCode == "" {
		return nil, fmt.Errorf("%w: getWsdl needs a service code", fault.ErrFormat)
	}

	body := bodyElement(serviceGetWSDL)
	body.CreateElement("xroad:serviceCode").SetText(service.ServiceCode)
	if service.ServiceVersion != "" {
		body.CreateElement("xroad:serviceVersion").SetText(service.ServiceVersion)
	}

	envelope, err := buildEnvelope(client, metaservice(service.Owner(), serviceGetWSDL), body)
	if err != nil {
		return nil, err
	}

	_, resp, err := c.soapCall(ctx, addr, envelope)
	if err != nil {
		return nil, err
	}
	return extractWSDL(resp)
}

// soapCall posts the envelope, extracts the response envelope from a plain
// or multipart body, and surfaces SOAP faults as ProtocolFault.
func (c *Client) soapCall(ctx context.Context, addr string, envelope []byte) (*soapEnvelope, *transport.Response, error) {
	url := transport.NormalizeURL(addr, c.secure)

	c.logger.Debug("metadata SOAP request", zap.String("url", url))
	resp, err := c.http.Post(ctx, url, "text/xml; charset=utf-8", envelope)
	if err != nil {
		if fault.IsTimeout(err) {
			return nil, nil, fmt.Errorf("%w: %s: %v", fault.ErrTimeout, url, err)
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", fault.ErrConnection, url, err)
	}

	root, err := parseEnvelope(resp)
	if err != nil {
		return nil, nil, err
	}
	// Faults are reported before HTTP status: servers deliver them with
	// error statuses and the fault text is the useful part.
	if protocolFault := root.fault(); protocolFault != nil {
		return nil, nil, protocolFault
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: %s returned status %d", fault.ErrNetwork, url, resp.StatusCode)
	}
	return root, resp, nil
}

// metaservice builds the SOAP header service identifier for a metaservice
// call against the given producer.
func metaservice(producer identifier.ClientID, code string) identifier.ServiceID {
	return identifier.ServiceID{
		Instance:      producer.Instance,
		MemberClass:   producer.MemberClass,
		MemberCode:    producer.MemberCode,
		SubsystemCode: producer.SubsystemCode,
		ServiceCode:   code,
	}
}
