package facturatech

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const soapNamespace = "urn:FacturaTech"

// soapParam is an ordered method parameter; order matters on the wire
type soapParam struct {
	Name  string
	Value string
}

// buildEnvelope wraps method parameters in a minimal SOAP 1.1 envelope.
// No WS-Security headers: credentials travel as method parameters.
func buildEnvelope(method string, params []soapParam) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="`)
	b.WriteString(soapNamespace)
	b.WriteString(`"><soapenv:Body><urn:`)
	b.WriteString(method)
	b.WriteString(`>`)
	for _, p := range params {
		b.WriteString("<")
		b.WriteString(p.Name)
		b.WriteString(">")
		xml.EscapeText(&b, []byte(p.Value))
		b.WriteString("</")
		b.WriteString(p.Name)
		b.WriteString(">")
	}
	b.WriteString(`</urn:`)
	b.WriteString(method)
	b.WriteString(`></soapenv:Body></soapenv:Envelope>`)
	return b.String()
}

func soapAction(method string) string {
	return fmt.Sprintf("%q", soapNamespace+"#"+method)
}

type replyKind int

const (
	replySuccess replyKind = iota
	replyFault
	replyOpaque
)

// soapReply is the classified provider response
type soapReply struct {
	kind    replyKind
	payload *etree.Element // method response element, or the whole body when opaque
	code    string
	message string
}

// childByLocalName finds a direct child by local tag name, ignoring the
// namespace prefix. Providers answer with SOAP-ENV:, soap: or soapenv:
// prefixes interchangeably.
func childByLocalName(e *etree.Element, name string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == name {
			return c
		}
	}
	return nil
}

// findText does a depth-first search for the first element with one of
// the given local names and non-empty text.
func findText(e *etree.Element, names ...string) string {
	if e == nil {
		return ""
	}
	for _, name := range names {
		if v := findTextOne(e, name); v != "" {
			return v
		}
	}
	return ""
}

func findTextOne(e *etree.Element, name string) string {
	if e.Tag == name {
		if t := strings.TrimSpace(e.Text()); t != "" {
			return t
		}
	}
	for _, c := range e.ChildElements() {
		if v := findTextOne(c, name); v != "" {
			return v
		}
	}
	return ""
}

// parseReply navigates a parsed SOAP document and classifies it:
// the method response element is a provisional success, a Fault is a
// terminal business error, anything else is returned opaque for the
// caller to interpret.
func parseReply(doc *etree.Document, method string) *soapReply {
	root := doc.Root()
	if root == nil {
		return &soapReply{kind: replyOpaque}
	}

	body := childByLocalName(root, "Body")
	if body == nil {
		return &soapReply{kind: replyOpaque, payload: root}
	}

	if mr := childByLocalName(body, method+"Response"); mr != nil {
		payload := mr
		if ret := childByLocalName(mr, "return"); ret != nil {
			payload = ret
		}
		if reply := businessError(payload); reply != nil {
			return reply
		}
		return &soapReply{kind: replySuccess, payload: mr}
	}

	if fault := childByLocalName(body, "Fault"); fault != nil {
		msg := findText(fault, "faultstring", "reason")
		if msg == "" {
			msg = "unknown SOAP fault"
		}
		return &soapReply{
			kind:    replyFault,
			code:    findText(fault, "faultcode"),
			message: msg,
		}
	}

	return &soapReply{kind: replyOpaque, payload: body}
}

// businessError detects a structured provider error inside an otherwise
// well-formed response: an error field, or a code of 400 or more.
func businessError(payload *etree.Element) *soapReply {
	code := ""
	if c := childByLocalName(payload, "code"); c != nil {
		code = strings.TrimSpace(c.Text())
	}
	errText := ""
	if e := childByLocalName(payload, "error"); e != nil {
		errText = strings.TrimSpace(e.Text())
	}

	numeric, convErr := strconv.Atoi(code)
	if errText == "" && (convErr != nil || numeric < 400) {
		return nil
	}

	msg := errText
	if msg == "" {
		msg = findText(payload, "message", "mensaje")
	}
	if msg == "" {
		msg = fmt.Sprintf("provider error %s", code)
	}
	return &soapReply{kind: replyFault, code: code, message: msg}
}
