// Package record defines the Pending Write Record: the envelope persisted for
// every write that could not reach the origin.
//
// The envelope fields (id, url, method, headers, timestamp, business key) are
// fixed; the body is kept as opaque bytes so no assumption is made about the
// request schema. The only thing ever read out of the body is the business
// key, and a body that does not carry one simply disables supersession.
package record
