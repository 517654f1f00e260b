package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
	"github.com/sirosfoundation/go-xrd/pkg/identifier"
	"github.com/sirosfoundation/go-xrd/pkg/transport"
)

// ListMethodsREST lists the producer's services over the REST metadata
// interface. REST listings never carry service versions.
func (c *Client) ListMethodsREST(ctx context.Context, addr string, req Request) ([]identifier.ServiceID, error) {
	return c.methodsREST(ctx, addr, req, serviceListMethods)
}

// AllowedMethodsREST lists the producer's services the client may invoke,
// over the REST metadata interface.
func (c *Client) AllowedMethodsREST(ctx context.Context, addr string, req Request) ([]identifier.ServiceID, error) {
	return c.methodsREST(ctx, addr, req, serviceAllowedMethods)
}

// GetOpenAPI retrieves the OpenAPI description of a REST service as an
// opaque blob. Services without an OpenAPI description report
// ErrNotOpenAPIService; producer-side read failures report ErrOpenAPIRead.
func (c *Client) GetOpenAPI(ctx context.Context, addr string, client identifier.ClientID, service identifier.ServiceID) ([]byte, error) {
	if service.ServiceCode == "" {
		return nil, fmt.Errorf("%w: getOpenAPI needs a service code", fault.ErrFormat)
	}

	path := fmt.Sprintf("/%s/%s/%s?serviceCode=%s",
		RESTVersion, ownerPath(service), serviceGetOpenAPI,
		identifier.EncodeSegment(service.ServiceCode))

	resp, err := c.restGet(ctx, addr, path, client)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) methodsREST(ctx context.Context, addr string, req Request, method string) ([]identifier.ServiceID, error) {
	path := fmt.Sprintf("/%s/%s/%s", RESTVersion, req.Producer.String(), method)

	resp, err := c.restGet(ctx, addr, path, req.Client)
	if err != nil {
		return nil, err
	}

	var listing restServiceList
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		return nil, fmt.Errorf("%w: parsing %s response: %v", fault.ErrFormat, method, err)
	}

	services := make([]identifier.ServiceID, 0, len(listing.Service))
	for _, entry := range listing.Service {
		services = append(services, identifier.ServiceID{
			Instance:      entry.XRoadInstance,
			MemberClass:   entry.MemberClass,
			MemberCode:    entry.MemberCode,
			SubsystemCode: entry.SubsystemCode,
			ServiceCode:   entry.ServiceCode,
		})
	}
	return services, nil
}

// restGet issues a GET against the REST metadata interface with the client
// identifier header, refining error responses into typed errors.
func (c *Client) restGet(ctx context.Context, addr, path string, client identifier.ClientID) (*transport.Response, error) {
	url := strings.TrimRight(transport.NormalizeURL(addr, c.secure), "/") + path

	c.logger.Debug("metadata REST request", zap.String("url", url))
	resp, err := c.http.Get(ctx, url, map[string]string{
		"X-Road-Client": client.String(),
		"Accept":        "application/json",
	})
	if err != nil {
		if fault.IsTimeout(err) {
			return nil, fmt.Errorf("%w: %s: %v", fault.ErrTimeout, url, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", fault.ErrConnection, url, err)
	}

	if resp.StatusCode >= 400 {
		return nil, restError(resp)
	}
	return resp, nil
}

// restServiceList is the JSON body of a REST listMethods/allowedMethods
// response.
type restServiceList struct {
	Service []restService `json:"service"`
}

type restService struct {
	XRoadInstance string `json:"xroad_instance"`
	MemberClass   string `json:"member_class"`
	MemberCode    string `json:"member_code"`
	SubsystemCode string `json:"subsystem_code"`
	ServiceCode   string `json:"service_code"`
}

// restErrorBody is the JSON error envelope of the REST metadata interface.
type restErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// restError maps a REST error response to a typed error. Two message shapes
// get dedicated kinds; everything else surfaces as a protocol fault with the
// server's type and message preserved.
func restError(resp *transport.Response) error {
	var body restErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return fmt.Errorf("%w: unparseable error response with status %d", fault.ErrFormat, resp.StatusCode)
	}

	switch {
	case body.Message == "Invalid service type: REST":
		return fmt.Errorf("%w: service has no OpenAPI description", fault.ErrNotOpenAPIService)
	case strings.HasPrefix(body.Message, "Failed reading service description from"):
		return fmt.Errorf("%w: %s", fault.ErrOpenAPIRead, body.Message)
	default:
		return &fault.ProtocolFault{FaultCode: body.Type, FaultString: body.Message}
	}
}

// ownerPath is the four-segment owner part of a REST service URL. The
// subsystem segment stays in place even when empty, so member-level services
// keep the service code in a fixed position.
func ownerPath(service identifier.ServiceID) string {
	return identifier.Encode([]string{
		service.Instance, service.MemberClass, service.MemberCode, service.SubsystemCode,
	})
}
