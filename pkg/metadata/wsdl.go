package metadata

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
)

// WSDLMethod is one operation advertised by a WSDL binding. Version carries
// the service version annotation when the description declares one.
type WSDLMethod struct {
	Name    string
	Version string
}

// WSDLMethods lists the operations of a WSDL document, in document order.
// The input is the blob returned by GetWSDL.
func WSDLMethods(doc []byte) ([]WSDLMethod, error) {
	parsed := etree.NewDocument()
	if err := parsed.ReadFromBytes(doc); err != nil {
		return nil, fmt.Errorf("%w: parsing WSDL: %v", fault.ErrFormat, err)
	}
	root := parsed.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty WSDL document", fault.ErrFormat)
	}

	var methods []WSDLMethod
	for _, operation := range root.FindElements("//binding/operation") {
		name := operation.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		version := ""
		if versionElem := operation.FindElement("./version"); versionElem != nil {
			version = strings.TrimSpace(versionElem.Text())
		}
		methods = append(methods, WSDLMethod{Name: name, Version: version})
	}
	return methods, nil
}
