// Package metadata implements the client side of the service metadata
// protocol: listMethods, allowedMethods and getWsdl over SOAP, and their
// listMethods, allowedMethods and getOpenAPI counterparts over the REST
// metadata interface.
//
// Every operation issues exactly one request against one security server
// address and blocks until the response is parsed or the context expires.
// Callers that want to query many servers run the operations concurrently
// themselves; the Client is safe for concurrent use.
package metadata
