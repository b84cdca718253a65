package facturatech

import (
	"fmt"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, body string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(body))
	return doc
}

func TestBuildEnvelope(t *testing.T) {
	env := buildEnvelope(methodUpload, []soapParam{
		{Name: "username", Value: "user@taller.co"},
		{Name: "password", Value: "abc123"},
		{Name: "invoiceFileLayout", Value: "ZGF0YQ=="},
	})

	assert.Contains(t, env, `xmlns:urn="urn:FacturaTech"`)
	assert.Contains(t, env, "<urn:FtechAction.uploadInvoiceFileLayout>")
	assert.Contains(t, env, "<username>user@taller.co</username>")
	assert.Contains(t, env, "<invoiceFileLayout>ZGF0YQ==</invoiceFileLayout>")

	// The envelope itself must be well-formed XML
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(env))
}

func TestBuildEnvelopeEscapesValues(t *testing.T) {
	env := buildEnvelope(methodStatus, []soapParam{{Name: "transaccionID", Value: `a<b&"c"`}})
	assert.NotContains(t, env, `<b&`)
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(env))
}

func TestSOAPAction(t *testing.T) {
	assert.Equal(t, `"urn:FacturaTech#FtechAction.uploadInvoiceFileLayout"`, soapAction(methodUpload))
}

// The provider aliases the envelope namespace differently depending on
// the backend that answers; parsing must not depend on the prefix.
func TestParseReplyPrefixAgnostic(t *testing.T) {
	const responseBody = `<%[1]s:Envelope xmlns:%[1]s="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:FacturaTech">
  <%[1]s:Body>
    <ns1:FtechAction.uploadInvoiceFileLayoutResponse>
      <return>
        <transactionId>78901</transactionId>
        <message>Documento recibido</message>
      </return>
    </ns1:FtechAction.uploadInvoiceFileLayoutResponse>
  </%[1]s:Body>
</%[1]s:Envelope>`

	for _, prefix := range []string{"SOAP-ENV", "soap", "soapenv"} {
		t.Run(prefix, func(t *testing.T) {
			doc := parseDoc(t, fmt.Sprintf(responseBody, prefix))
			reply := parseReply(doc, methodUpload)
			require.Equal(t, replySuccess, reply.kind)
			assert.Equal(t, "78901", findText(reply.payload, "transactionId"))
			assert.Equal(t, "Documento recibido", findText(reply.payload, "message"))
		})
	}
}

func TestParseReplyFault(t *testing.T) {
	doc := parseDoc(t, `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Server</faultcode>
      <faultstring>Credenciales invalidas</faultstring>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`)

	reply := parseReply(doc, methodUpload)
	require.Equal(t, replyFault, reply.kind)
	assert.Equal(t, "Credenciales invalidas", reply.message)
	assert.Equal(t, "SOAP-ENV:Server", reply.code)
}

func TestParseReplyBusinessErrorCode(t *testing.T) {
	doc := parseDoc(t, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:FacturaTech">
  <soap:Body>
    <ns1:FtechAction.documentStatusFileResponse>
      <return>
        <code>401</code>
        <message>Usuario no autorizado</message>
      </return>
    </ns1:FtechAction.documentStatusFileResponse>
  </soap:Body>
</soap:Envelope>`)

	reply := parseReply(doc, methodStatus)
	require.Equal(t, replyFault, reply.kind)
	assert.Equal(t, "401", reply.code)
	assert.Equal(t, "Usuario no autorizado", reply.message)
}

func TestParseReplyErrorField(t *testing.T) {
	doc := parseDoc(t, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:FacturaTech">
  <soap:Body>
    <ns1:FtechAction.uploadInvoiceFileLayoutResponse>
      <return>
        <error>Layout invalido: seccion TOT</error>
      </return>
    </ns1:FtechAction.uploadInvoiceFileLayoutResponse>
  </soap:Body>
</soap:Envelope>`)

	reply := parseReply(doc, methodUpload)
	require.Equal(t, replyFault, reply.kind)
	assert.Contains(t, reply.message, "Layout invalido")
}

func TestParseReplySuccessCode(t *testing.T) {
	// Codes below 400 are informational, not errors
	doc := parseDoc(t, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="urn:FacturaTech">
  <soap:Body>
    <ns1:FtechAction.documentStatusFileResponse>
      <return>
        <code>200</code>
        <message>Documento aprobado por DIAN</message>
      </return>
    </ns1:FtechAction.documentStatusFileResponse>
  </soap:Body>
</soap:Envelope>`)

	reply := parseReply(doc, methodStatus)
	require.Equal(t, replySuccess, reply.kind)
	assert.Equal(t, "200", findText(reply.payload, "code"))
}

func TestParseReplyOpaque(t *testing.T) {
	doc := parseDoc(t, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <unexpectedWrapper>
      <transactionId>5555</transactionId>
    </unexpectedWrapper>
  </soap:Body>
</soap:Envelope>`)

	reply := parseReply(doc, methodUpload)
	require.Equal(t, replyOpaque, reply.kind)
	// Fields are still reachable through local-name search
	assert.Equal(t, "5555", findText(reply.payload, "transactionId"))
}
