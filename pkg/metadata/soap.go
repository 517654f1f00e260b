package metadata

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
	"github.com/sirosfoundation/go-xrd/pkg/identifier"
	"github.com/sirosfoundation/go-xrd/pkg/transport"
)

// X-Road SOAP namespaces.
const (
	nsSOAPEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	nsXRoad   = "http://x-road.eu/xsd/xroad.xsd"
	nsID      = "http://x-road.eu/xsd/identifiers"
)

// bodyElement creates the request body element for a metaservice call,
// e.g. <xroad:listMethods/>.
func bodyElement(serviceCode string) *etree.Element {
	return etree.NewElement("xroad:" + serviceCode)
}

// buildEnvelope serializes a request envelope with the standard header:
// client and service identifiers, a unique request id and the protocol
// version. The body element is adopted into the envelope.
func buildEnvelope(client identifier.ClientID, service identifier.ServiceID, body *etree.Element) ([]byte, error) {
	if client.Instance == "" || client.MemberClass == "" || client.MemberCode == "" {
		return nil, fmt.Errorf("%w: incomplete client identifier %q", fault.ErrFormat, client)
	}
	if service.Instance == "" || service.MemberClass == "" || service.MemberCode == "" || service.ServiceCode == "" {
		return nil, fmt.Errorf("%w: incomplete service identifier %q", fault.ErrFormat, service)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	envelope := doc.CreateElement("SOAP-ENV:Envelope")
	envelope.CreateAttr("xmlns:SOAP-ENV", nsSOAPEnv)
	envelope.CreateAttr("xmlns:xroad", nsXRoad)
	envelope.CreateAttr("xmlns:id", nsID)

	header := envelope.CreateElement("SOAP-ENV:Header")

	clientElem := header.CreateElement("xroad:client")
	if client.IsSubsystem() {
		clientElem.CreateAttr("id:objectType", "SUBSYSTEM")
	} else {
		clientElem.CreateAttr("id:objectType", "MEMBER")
	}
	clientElem.CreateElement("id:xRoadInstance").SetText(client.Instance)
	clientElem.CreateElement("id:memberClass").SetText(client.MemberClass)
	clientElem.CreateElement("id:memberCode").SetText(client.MemberCode)
	if client.IsSubsystem() {
		clientElem.CreateElement("id:subsystemCode").SetText(client.SubsystemCode)
	}

	serviceElem := header.CreateElement("xroad:service")
	serviceElem.CreateAttr("id:objectType", "SERVICE")
	serviceElem.CreateElement("id:xRoadInstance").SetText(service.Instance)
	serviceElem.CreateElement("id:memberClass").SetText(service.MemberClass)
	serviceElem.CreateElement("id:memberCode").SetText(service.MemberCode)
	if service.SubsystemCode != "" {
		serviceElem.CreateElement("id:subsystemCode").SetText(service.SubsystemCode)
	}
	serviceElem.CreateElement("id:serviceCode").SetText(service.ServiceCode)

	header.CreateElement("xroad:id").SetText(uuid.New().String())
	header.CreateElement("xroad:protocolVersion").SetText(ProtocolVersion)

	envelope.CreateElement("SOAP-ENV:Body").AddChild(body)

	return doc.WriteToBytes()
}

// soapEnvelope is a parsed response envelope.
type soapEnvelope struct {
	root *etree.Element
}

// fault returns the SOAP fault carried by the envelope, or nil.
func (e *soapEnvelope) fault() *fault.ProtocolFault {
	faultString := e.root.FindElement("//faultstring")
	if faultString == nil {
		return nil
	}
	code := ""
	if faultCode := e.root.FindElement("//faultcode"); faultCode != nil {
		code = strings.TrimSpace(faultCode.Text())
	}
	return &fault.ProtocolFault{
		FaultCode:   code,
		FaultString: strings.TrimSpace(faultString.Text()),
	}
}

// parseEnvelope extracts the response envelope from a plain XML or multipart
// body. Metaservice responses with attachments (getWsdl) carry the envelope
// as the first text/xml part.
func parseEnvelope(resp *transport.Response) (*soapEnvelope, error) {
	data := resp.Body
	if isMultipart(resp.Header.Get("Content-Type")) {
		parts, err := splitParts(resp)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: multipart response carries no parts", fault.ErrFormat)
		}
		data = parts[0].body
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: parsing SOAP response: %v", fault.ErrFormat, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty SOAP response", fault.ErrFormat)
	}
	return &soapEnvelope{root: root}, nil
}

// parseMethodsResponse reads the service list from a listMethodsResponse or
// allowedMethodsResponse element, preserving the response order.
func parseMethodsResponse(envelope *soapEnvelope, method string) ([]identifier.ServiceID, error) {
	response := envelope.root.FindElement("//" + method + "Response")
	if response == nil {
		return nil, fmt.Errorf("%w: response carries no %sResponse element", fault.ErrFormat, method)
	}

	var services []identifier.ServiceID
	for _, serviceElem := range response.FindElements("./service") {
		service := identifier.ServiceID{
			Instance:       childText(serviceElem, "xRoadInstance"),
			MemberClass:    childText(serviceElem, "memberClass"),
			MemberCode:     childText(serviceElem, "memberCode"),
			SubsystemCode:  childText(serviceElem, "subsystemCode"),
			ServiceCode:    childText(serviceElem, "serviceCode"),
			ServiceVersion: childText(serviceElem, "serviceVersion"),
		}
		if service.Instance == "" || service.MemberClass == "" || service.MemberCode == "" || service.ServiceCode == "" {
			return nil, fmt.Errorf("%w: service entry with missing identifier parts", fault.ErrFormat)
		}
		services = append(services, service)
	}
	return services, nil
}

// extractWSDL returns the WSDL attachment of a getWsdl response: the second
// text/xml part of the multipart body, as an opaque blob.
func extractWSDL(resp *transport.Response) ([]byte, error) {
	if !isMultipart(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%w: getWsdl response is not multipart", fault.ErrFormat)
	}
	parts, err := splitParts(resp)
	if err != nil {
		return nil, err
	}

	seenEnvelope := false
	for _, part := range parts {
		if !strings.HasPrefix(strings.ToLower(part.contentType), "text/xml") {
			continue
		}
		if !seenEnvelope {
			// The first text/xml part is the response envelope.
			seenEnvelope = true
			continue
		}
		return part.body, nil
	}
	return nil, fmt.Errorf("%w: WSDL attachment not found in response", fault.ErrFormat)
}

type responsePart struct {
	contentType string
	body        []byte
}

func isMultipart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "multipart/")
}

func splitParts(resp *transport.Response) ([]responsePart, error) {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing response content type: %v", fault.ErrFormat, err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart response without boundary", fault.ErrFormat)
	}

	var parts []responsePart
	reader := multipart.NewReader(bytes.NewReader(resp.Body), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading multipart response: %v", fault.ErrFormat, err)
		}
		body, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("%w: reading multipart response part: %v", fault.ErrFormat, err)
		}
		parts = append(parts, responsePart{
			contentType: part.Header.Get("Content-Type"),
			body:        body,
		})
	}
	return parts, nil
}

func childText(parent *etree.Element, tag string) string {
	elem := parent.FindElement("./" + tag)
	if elem == nil {
		return ""
	}
	return strings.TrimSpace(elem.Text())
}
