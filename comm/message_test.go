package comm

import "testing"

func TestMessageStringParseRoundTrip(t *testing.T) {

	msg := &Message{
		Sender:  "site-a",
		VClock:  map[string]uint32{"site-a": 3, "site-b": 1},
		Payload: `{"view":"set-1","op":"set.add","body":{"tag":"t1|t2","value":"x"}}`,
	}

	parsed, err := ParseMessage(msg.String())
	if err != nil {
		t.Fatalf("[comm.TestMessageStringParseRoundTrip] unexpected parse error: %v", err)
	}

	if parsed.Sender != msg.Sender {
		t.Fatalf("[comm.TestMessageStringParseRoundTrip] expected sender %q, got %q", msg.Sender, parsed.Sender)
	}
	if parsed.Payload != msg.Payload {
		t.Fatalf("[comm.TestMessageStringParseRoundTrip] expected payload to survive a pipe-containing JSON body verbatim, got %q", parsed.Payload)
	}
	for node, value := range msg.VClock {
		if parsed.VClock[node] != value {
			t.Fatalf("[comm.TestMessageStringParseRoundTrip] expected vclock[%s] == %d, got %d", node, value, parsed.VClock[node])
		}
	}
}

func TestParseMessageRejectsTooFewParts(t *testing.T) {

	if _, err := ParseMessage("site-a|only-two-parts"); err == nil {
		t.Fatalf("[comm.TestParseMessageRejectsTooFewParts] expected an error for a message missing its payload segment")
	}
}

func TestParseMessageRejectsMissingSender(t *testing.T) {

	if _, err := ParseMessage("|site-a:1|payload"); err == nil {
		t.Fatalf("[comm.TestParseMessageRejectsMissingSender] expected an error for an empty sender field")
	}
}

func TestParseMessageRejectsMalformedVClock(t *testing.T) {

	if _, err := ParseMessage("site-a|site-a-no-colon|payload"); err == nil {
		t.Fatalf("[comm.TestParseMessageRejectsMalformedVClock] expected an error for a vector clock entry missing its colon")
	}
}
