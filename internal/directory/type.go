// Package directory implements the Principal directory record, its dynamic
// JSON field container (PrincipalSet), and the full-text search-index
// delta computation run whenever a principal changes.
package directory

import "fmt"

// Type enumerates the kinds of directory record a Principal can be.
type Type int

const (
	Individual Type = iota
	Group
	Resource
	Location
	Other
	List
	Tenant
	Role
	Domain
	ApiKey
	OauthClient
)

// ToU8 encodes Type to its fixed byte representation.
func (t Type) ToU8() uint8 {
	return uint8(t)
}

// TypeFromU8 decodes a byte into a Type. Unknown codes, including the
// legacy code 4, decode to Other.
func TypeFromU8(b uint8) Type {
	switch b {
	case uint8(Individual):
		return Individual
	case uint8(Group):
		return Group
	case uint8(Resource):
		return Resource
	case uint8(Location):
		return Location
	case uint8(List):
		return List
	case uint8(Tenant):
		return Tenant
	case uint8(Role):
		return Role
	case uint8(Domain):
		return Domain
	case uint8(ApiKey):
		return ApiKey
	case uint8(OauthClient):
		return OauthClient
	default:
		return Other
	}
}

// String returns the domain-string encoding used at the JSON boundary.
func (t Type) String() string {
	switch t {
	case Individual:
		return "individual"
	case Group:
		return "group"
	case Resource:
		return "resource"
	case Location:
		return "location"
	case List:
		return "list"
	case Tenant:
		return "tenant"
	case Role:
		return "role"
	case Domain:
		return "domain"
	case ApiKey:
		return "apiKey"
	case OauthClient:
		return "oauthClient"
	default:
		return "other"
	}
}

// ParseType decodes the JSON boundary's domain string into a Type. The
// legacy string "superuser" parses to Individual.
func ParseType(s string) (Type, error) {
	switch s {
	case "individual":
		return Individual, nil
	case "group":
		return Group, nil
	case "resource":
		return Resource, nil
	case "location":
		return Location, nil
	case "other":
		return Other, nil
	case "list":
		return List, nil
	case "tenant":
		return Tenant, nil
	case "role":
		return Role, nil
	case "domain":
		return Domain, nil
	case "apiKey":
		return ApiKey, nil
	case "oauthClient":
		return OauthClient, nil
	case "superuser":
		return Individual, nil
	default:
		return Other, fmt.Errorf("unknown principal type %q", s)
	}
}
