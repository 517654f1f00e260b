package sharedparams

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
	"github.com/sirosfoundation/go-xrd/pkg/identifier"
)

// Member is a registered organization of the instance.
type Member struct {
	ID   identifier.ClientID
	Name string
}

// Subsystem is a registered subsystem of a member. Name is only present in
// newer schema versions.
type Subsystem struct {
	ID   identifier.ClientID
	Name string
}

// SecurityServer is a registered gateway node.
type SecurityServer struct {
	Owner             identifier.ClientID
	ServerCode        string
	Address           string
	InMaintenanceMode bool
}

// ID returns the server's wire identifier
// (instance/class/code/serverCode).
func (s SecurityServer) ID() string {
	return identifier.Encode([]string{s.Owner.Instance, s.Owner.MemberClass, s.Owner.MemberCode, s.ServerCode})
}

// GlobalGroup is an access-rights group defined instance-wide.
type GlobalGroup struct {
	Code        string
	Description string
	Members     []identifier.ClientID
}

// CentralService is an instance-wide service alias, optionally mapped to an
// implementing service.
type CentralService struct {
	ServiceCode         string
	ImplementingService *identifier.ServiceID
}

// SharedParams is the read-only registry parsed from one verified
// shared-params configuration part. Values are immutable after Parse and
// safe to share across concurrent readers.
type SharedParams struct {
	instance        string
	members         []Member
	subsystems      []Subsystem
	servers         []SecurityServer
	groups          []GlobalGroup
	centralServices []CentralService

	// memberName indexes member display names by member wire id.
	memberName map[string]string
	// serversByClient maps a member or subsystem wire id to the indices of
	// the servers it is registered on.
	serversByClient map[string][]int
	// serversByOwner maps a member wire id to the servers it owns.
	serversByOwner map[string][]int
}

// Instance returns the instance identifier of the registry.
func (p *SharedParams) Instance() string {
	return p.instance
}

// schemaExtractor absorbs the differences between shared-params schema
// versions behind one extraction interface, so optional elements never turn
// into scattered presence checks.
type schemaExtractor interface {
	version() int
	subsystemName(subsystem *etree.Element) string
	serverMaintenance(server *etree.Element) bool
}

// schemaV1 is the baseline schema: no subsystem names, no maintenance mode.
type schemaV1 struct{}

func (schemaV1) version() int                          { return 1 }
func (schemaV1) subsystemName(*etree.Element) string   { return "" }
func (schemaV1) serverMaintenance(*etree.Element) bool { return false }

// schemaV2 adds optional subsystemName and inMaintenanceMode elements.
type schemaV2 struct{}

func (schemaV2) version() int { return 2 }

func (schemaV2) subsystemName(subsystem *etree.Element) string {
	return elementText(subsystem, "./subsystemName")
}

func (schemaV2) serverMaintenance(server *etree.Element) bool {
	return elementText(server, "./inMaintenanceMode") == "true"
}

func detectSchema(root *etree.Element) schemaExtractor {
	if v, err := strconv.Atoi(root.SelectAttrValue("version", "1")); err == nil && v >= 2 {
		return schemaV2{}
	}
	return schemaV1{}
}

// Parse builds the registry from a shared-params document. The input must be
// the content of a configuration part that passed verification; Parse itself
// performs no trust checks.
func Parse(data []byte) (*SharedParams, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: parsing shared-params: %v", fault.ErrFormat, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty shared-params document", fault.ErrFormat)
	}

	instance := elementText(root, "./instanceIdentifier")
	if instance == "" {
		return nil, fmt.Errorf("%w: shared-params has no instanceIdentifier", fault.ErrFormat)
	}

	schema := detectSchema(root)

	params := &SharedParams{
		instance:        instance,
		memberName:      make(map[string]string),
		serversByClient: make(map[string][]int),
		serversByOwner:  make(map[string][]int),
	}

	// Element ids (member/subsystem "id" attributes) to wire identifiers,
	// for resolving securityServer owner/client references.
	clientByElemID := make(map[string]identifier.ClientID)

	for _, memberElem := range root.FindElements("./member") {
		memberID := identifier.ClientID{
			Instance:    instance,
			MemberClass: elementText(memberElem, "./memberClass/code"),
			MemberCode:  elementText(memberElem, "./memberCode"),
		}
		if memberID.MemberClass == "" || memberID.MemberCode == "" {
			return nil, fmt.Errorf("%w: member without memberClass or memberCode", fault.ErrFormat)
		}

		member := Member{ID: memberID, Name: elementText(memberElem, "./name")}
		params.members = append(params.members, member)
		params.memberName[memberID.String()] = member.Name
		if elemID := memberElem.SelectAttrValue("id", ""); elemID != "" {
			clientByElemID[elemID] = memberID
		}

		for _, subsystemElem := range memberElem.FindElements("./subsystem") {
			subsystemID := memberID
			subsystemID.SubsystemCode = elementText(subsystemElem, "./subsystemCode")
			if subsystemID.SubsystemCode == "" {
				return nil, fmt.Errorf("%w: subsystem of %s without subsystemCode", fault.ErrFormat, memberID)
			}
			params.subsystems = append(params.subsystems, Subsystem{
				ID:   subsystemID,
				Name: schema.subsystemName(subsystemElem),
			})
			if elemID := subsystemElem.SelectAttrValue("id", ""); elemID != "" {
				clientByElemID[elemID] = subsystemID
			}
		}
	}

	for _, serverElem := range root.FindElements("./securityServer") {
		ownerRef := elementText(serverElem, "./owner")
		owner, ok := clientByElemID[ownerRef]
		if !ok {
			return nil, fmt.Errorf("%w: securityServer references unknown owner %q", fault.ErrFormat, ownerRef)
		}
		server := SecurityServer{
			Owner:             owner,
			ServerCode:        elementText(serverElem, "./serverCode"),
			Address:           elementText(serverElem, "./address"),
			InMaintenanceMode: schema.serverMaintenance(serverElem),
		}
		if server.ServerCode == "" {
			return nil, fmt.Errorf("%w: securityServer of %s without serverCode", fault.ErrFormat, owner)
		}
		idx := len(params.servers)
		params.servers = append(params.servers, server)

		params.serversByOwner[owner.String()] = append(params.serversByOwner[owner.String()], idx)
		for _, clientElem := range serverElem.FindElements("./client") {
			client, ok := clientByElemID[strings.TrimSpace(clientElem.Text())]
			if !ok {
				// Tolerate dangling client references; they appear while
				// registrations are being processed.
				continue
			}
			key := client.String()
			params.serversByClient[key] = append(params.serversByClient[key], idx)
		}
	}

	for _, groupElem := range root.FindElements("./globalGroup") {
		group := GlobalGroup{
			Code:        elementText(groupElem, "./groupCode"),
			Description: elementText(groupElem, "./description"),
		}
		for _, groupMember := range groupElem.FindElements("./groupMember") {
			group.Members = append(group.Members, identifier.ClientID{
				Instance:      instance,
				MemberClass:   elementText(groupMember, "./memberClass"),
				MemberCode:    elementText(groupMember, "./memberCode"),
				SubsystemCode: elementText(groupMember, "./subsystemCode"),
			})
		}
		params.groups = append(params.groups, group)
	}

	for _, serviceElem := range root.FindElements("./centralService") {
		service := CentralService{ServiceCode: elementText(serviceElem, "./serviceCode")}
		if impl := serviceElem.FindElement("./implementingService"); impl != nil {
			service.ImplementingService = &identifier.ServiceID{
				Instance:      instance,
				MemberClass:   elementText(impl, "./memberClass"),
				MemberCode:    elementText(impl, "./memberCode"),
				SubsystemCode: elementText(impl, "./subsystemCode"),
				ServiceCode:   elementText(impl, "./serviceCode"),
			}
		}
		params.centralServices = append(params.centralServices, service)
	}

	return params, nil
}

func elementText(parent *etree.Element, path string) string {
	elem := parent.FindElement(path)
	if elem == nil {
		return ""
	}
	return strings.TrimSpace(elem.Text())
}
