// Package openapi loads OpenAPI service descriptions and lists their
// endpoints. Descriptions arrive as opaque blobs from the getOpenAPI
// metaservice and may be serialized as JSON or YAML; endpoints are reported
// in document order.
package openapi
