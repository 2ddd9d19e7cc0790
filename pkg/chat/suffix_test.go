package chat

import "testing"

func TestParseLocalSuffix(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want LocalSuffix
	}{
		{"plain", "hello there", LocalSuffix{Range: RangeSay, Verb: "says:", Text: "hello there"}},
		{"shout", "over here!!", LocalSuffix{Range: RangeShout, Verb: "shouts:", Text: "over here!!"}},
		{"exclaim", "watch out!", LocalSuffix{Range: RangeExclaim, Verb: "exclaims:", Text: "watch out!"}},
		{"ask", "anyone home?", LocalSuffix{Range: RangeSay, Verb: "asks:", Text: "anyone home?"}},
		{"whisper", "psst over here *", LocalSuffix{Range: RangeWhisper, Verb: "whispers:", Text: "psst over here"}},
		{"mutter", "typical $", LocalSuffix{Range: RangeMutter, Verb: "mutters:", Text: "typical"}},
		{"roleplay", `waves and says "hi" +`, LocalSuffix{Range: RangeSay, Text: `waves and says "hi"`, Roleplay: true}},
		{"ooc", "brb phone ))", LocalSuffix{Range: RangeSay, Text: "brb phone", OOC: true}},
		{"ooc beats exclaim order", "really? ))", LocalSuffix{Range: RangeSay, Text: "really?", OOC: true}},
		{"surrounding whitespace", "  hello  ", LocalSuffix{Range: RangeSay, Verb: "says:", Text: "hello"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLocalSuffix(tc.in)
			if got != tc.want {
				t.Errorf("ParseLocalSuffix(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseLocalSuffixShoutNotTwoExclaims(t *testing.T) {
	got := ParseLocalSuffix("hey!!")
	if got.Range != RangeShout || got.Verb != "shouts:" {
		t.Fatalf("double exclamation parsed as %+v, want shout", got)
	}
}
