package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
	"github.com/sirosfoundation/go-xrd/pkg/identifier"
)

var testRequest = Request{
	Client:   identifier.ClientID{Instance: "DEV", MemberClass: "COM", MemberCode: "5678", SubsystemCode: "client"},
	Producer: identifier.ClientID{Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo"},
}

func listMethodsEnvelope(codes ...string) string {
	var services strings.Builder
	for _, code := range codes {
		fmt.Fprintf(&services, `
      <xroad:service id:objectType="SERVICE">
        <id:xRoadInstance>DEV</id:xRoadInstance>
        <id:memberClass>GOV</id:memberClass>
        <id:memberCode>1234</id:memberCode>
        <id:subsystemCode>demo</id:subsystemCode>
        <id:serviceCode>%s</id:serviceCode>
        <id:serviceVersion>v1</id:serviceVersion>
      </xroad:service>`, code)
	}
	return `<?xml version="1.0" encoding="utf-8"?>
<SOAP-ENV:Envelope
    xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns:xroad="http://x-road.eu/xsd/xroad.xsd"
    xmlns:id="http://x-road.eu/xsd/identifiers">
  <SOAP-ENV:Header/>
  <SOAP-ENV:Body>
    <xroad:listMethodsResponse>` + services.String() + `
    </xroad:listMethodsResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`
}

const faultEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Client</faultcode>
      <faultstring>Unknown service</faultstring>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func TestListMethodsPreservesOrder(t *testing.T) {
	var requestBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		fmt.Fprint(w, listMethodsEnvelope("getData", "putData", "listItems", "archive", "status"))
	}))
	defer server.Close()

	client := NewClient()
	services, err := client.ListMethods(context.Background(), server.URL, testRequest)
	require.NoError(t, err)

	require.Len(t, services, 5)
	codes := make([]string, len(services))
	for i, service := range services {
		codes[i] = service.ServiceCode
	}
	assert.Equal(t, []string{"getData", "putData", "listItems", "archive", "status"}, codes)
	assert.Equal(t, "DEV/GOV/1234/demo/getData/v1", services[0].String())

	body := string(requestBody)
	assert.Contains(t, body, "<xroad:listMethods/>")
	assert.Contains(t, body, `id:objectType="SUBSYSTEM"`)
	assert.Contains(t, body, "<xroad:protocolVersion>4.0</xroad:protocolVersion>")
	assert.Contains(t, body, "<id:serviceCode>listMethods</id:serviceCode>")
}

func TestListMethodsMemberClient(t *testing.T) {
	var requestBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, listMethodsEnvelope())
	}))
	defer server.Close()

	request := testRequest
	request.Client.SubsystemCode = ""

	client := NewClient()
	services, err := client.ListMethods(context.Background(), server.URL, request)
	require.NoError(t, err)
	assert.Empty(t, services)

	body := string(requestBody)
	assert.Contains(t, body, `id:objectType="MEMBER"`)
	assert.NotContains(t, body, "<id:subsystemCode>client</id:subsystemCode>")
}

func TestListMethodsFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, faultEnvelope)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.ListMethods(context.Background(), server.URL, testRequest)

	var protocolFault *fault.ProtocolFault
	require.ErrorAs(t, err, &protocolFault)
	assert.Equal(t, "Unknown service", protocolFault.FaultString)
	assert.Equal(t, "SOAP-ENV:Client", protocolFault.FaultCode)
}

func TestListMethodsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient()
	_, err := client.ListMethods(context.Background(), server.URL, testRequest)
	assert.ErrorIs(t, err, fault.ErrConnection)
}

func TestAllowedMethods(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<xroad:allowedMethods/>")
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, strings.ReplaceAll(listMethodsEnvelope("getData"), "listMethodsResponse", "allowedMethodsResponse"))
	}))
	defer server.Close()

	client := NewClient()
	services, err := client.AllowedMethods(context.Background(), server.URL, testRequest)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "getData", services[0].ServiceCode)
}

func TestListMethodsREST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r1/DEV/GOV/1234/demo/listMethods", r.URL.Path)
		assert.Equal(t, "DEV/COM/5678/client", r.Header.Get("X-Road-Client"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"service":[
			{"xroad_instance":"DEV","member_class":"GOV","member_code":"1234","subsystem_code":"demo","service_code":"pets"},
			{"xroad_instance":"DEV","member_class":"GOV","member_code":"1234","subsystem_code":"demo","service_code":"orders"}
		]}`)
	}))
	defer server.Close()

	client := NewClient()
	services, err := client.ListMethodsREST(context.Background(), server.URL, testRequest)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "pets", services[0].ServiceCode)
	assert.Equal(t, "orders", services[1].ServiceCode)
	assert.Empty(t, services[0].ServiceVersion)
}

func TestGetWSDL(t *testing.T) {
	const wsdlDoc = `<?xml version="1.0"?><definitions xmlns="http://schemas.xmlsoap.org/wsdl/"></definitions>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<xroad:getWsdl>")
		assert.Contains(t, string(body), "<xroad:serviceCode>getData</xroad:serviceCode>")
		assert.Contains(t, string(body), "<xroad:serviceVersion>v1</xroad:serviceVersion>")
		assert.Contains(t, string(body), "<id:serviceCode>getWsdl</id:serviceCode>")

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/xml; charset=utf-8"}})
		require.NoError(t, err)
		fmt.Fprint(part, listMethodsEnvelope())
		part, err = writer.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/xml; charset=utf-8"}})
		require.NoError(t, err)
		fmt.Fprint(part, wsdlDoc)
		require.NoError(t, writer.Close())

		w.Header().Set("Content-Type", "multipart/related; boundary="+writer.Boundary())
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := NewClient()
	doc, err := client.GetWSDL(context.Background(), server.URL, testRequest.Client, identifier.ServiceID{
		Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo",
		ServiceCode: "getData", ServiceVersion: "v1",
	})
	require.NoError(t, err)
	assert.Equal(t, wsdlDoc, string(doc))
}

func TestGetWSDLFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, faultEnvelope)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.GetWSDL(context.Background(), server.URL, testRequest.Client, identifier.ServiceID{
		Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo",
		ServiceCode: "getData",
	})

	var protocolFault *fault.ProtocolFault
	require.ErrorAs(t, err, &protocolFault)
	assert.Equal(t, "Unknown service", protocolFault.FaultString)
}

func TestWSDLMethods(t *testing.T) {
	const wsdlDoc = `<?xml version="1.0"?>
<wsdl:definitions
    xmlns:wsdl="http://schemas.xmlsoap.org/wsdl/"
    xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
    xmlns:xrd="http://x-road.eu/xsd/xroad.xsd">
  <wsdl:portType name="demoPort">
    <wsdl:operation name="getData"/>
  </wsdl:portType>
  <wsdl:binding name="demoBinding" type="tns:demoPort">
    <soap:binding style="document" transport="http://schemas.xmlsoap.org/soap/http"/>
    <wsdl:operation name="getData">
      <soap:operation soapAction=""/>
      <xrd:version>v1</xrd:version>
    </wsdl:operation>
    <wsdl:operation name="putData">
      <soap:operation soapAction=""/>
    </wsdl:operation>
  </wsdl:binding>
</wsdl:definitions>`

	methods, err := WSDLMethods([]byte(wsdlDoc))
	require.NoError(t, err)
	assert.Equal(t, []WSDLMethod{
		{Name: "getData", Version: "v1"},
		{Name: "putData"},
	}, methods)
}

func TestWSDLMethodsBadInput(t *testing.T) {
	_, err := WSDLMethods([]byte("not xml <"))
	assert.ErrorIs(t, err, fault.ErrFormat)
}

func TestGetOpenAPI(t *testing.T) {
	const openAPIDoc = `{"openapi":"3.0.0","paths":{}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r1/DEV/GOV/1234/demo/getOpenAPI", r.URL.Path)
		assert.Equal(t, "petstore", r.URL.Query().Get("serviceCode"))
		assert.Equal(t, "DEV/COM/5678/client", r.Header.Get("X-Road-Client"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openAPIDoc)
	}))
	defer server.Close()

	client := NewClient()
	doc, err := client.GetOpenAPI(context.Background(), server.URL, testRequest.Client, identifier.ServiceID{
		Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo",
		ServiceCode: "petstore",
	})
	require.NoError(t, err)
	assert.Equal(t, openAPIDoc, string(doc))
}

func TestGetOpenAPIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "soap service",
			status:  http.StatusBadRequest,
			body:    `{"type":"client.wrong_service_type","message":"Invalid service type: REST"}`,
			wantErr: fault.ErrNotOpenAPIService,
		},
		{
			name:    "description unreadable",
			status:  http.StatusInternalServerError,
			body:    `{"type":"server.read_failure","message":"Failed reading service description from http://backend"}`,
			wantErr: fault.ErrOpenAPIRead,
		},
		{
			name:    "unparseable error body",
			status:  http.StatusBadGateway,
			body:    "<html>bad gateway</html>",
			wantErr: fault.ErrFormat,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			client := NewClient()
			_, err := client.GetOpenAPI(context.Background(), server.URL, testRequest.Client, identifier.ServiceID{
				Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo",
				ServiceCode: "petstore",
			})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestGetOpenAPIProtocolFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"type":"client.service_not_found","message":"Service not found"}`)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.GetOpenAPI(context.Background(), server.URL, testRequest.Client, identifier.ServiceID{
		Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo",
		ServiceCode: "missing",
	})

	var protocolFault *fault.ProtocolFault
	require.ErrorAs(t, err, &protocolFault)
	assert.Equal(t, "client.service_not_found", protocolFault.FaultCode)
	assert.Equal(t, "Service not found", protocolFault.FaultString)
}

func TestBuildEnvelopeValidation(t *testing.T) {
	_, err := buildEnvelope(identifier.ClientID{}, identifier.ServiceID{}, bodyElement(serviceListMethods))
	assert.ErrorIs(t, err, fault.ErrFormat)
}
