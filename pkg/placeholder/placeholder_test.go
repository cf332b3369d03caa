package placeholder

import (
	"strings"
	"testing"
)

func TestGenerate_Shape(t *testing.T) {
	token := Generate("API_KEY", "sk-abc123def456ghi789jkl012mno345pqr678stu901vwx234yz")

	if !strings.HasPrefix(token, "<API_KEY_REDACTED_") {
		t.Errorf("Generate() = %q, want <API_KEY_REDACTED_...> shape", token)
	}
	if !strings.HasSuffix(token, ">") {
		t.Errorf("Generate() = %q, want trailing '>'", token)
	}
	if len(token) != TokenLen("API_KEY") {
		t.Errorf("len(token) = %d, want %d", len(token), TokenLen("API_KEY"))
	}
	if !IsToken(token) {
		t.Errorf("IsToken(%q) = false, want true", token)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate("API_KEY", "secret-value-one")
	b := Generate("API_KEY", "secret-value-one")
	if a != b {
		t.Errorf("same secret produced different tokens: %q vs %q", a, b)
	}

	c := Generate("API_KEY", "secret-value-two")
	if a == c {
		t.Errorf("distinct secrets produced the same token %q", a)
	}
}

func TestHashSuffix(t *testing.T) {
	suffix := HashSuffix("some-secret")
	if len(suffix) != HashLen {
		t.Fatalf("len(HashSuffix()) = %d, want %d", len(suffix), HashLen)
	}
	for i := 0; i < len(suffix); i++ {
		if !isHex(suffix[i]) {
			t.Errorf("HashSuffix() = %q, byte %d is not lowercase hex", suffix, i)
		}
	}
}

func TestIsToken(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"well-formed", "<API_KEY_REDACTED_ab12>", true},
		{"long prefix", "<AWS_ACCESS_KEY_REDACTED_0f3c>", true},
		{"digit in prefix", "<S3_KEY_REDACTED_ab12>", true},
		{"lowercase prefix", "<api_key_REDACTED_ab12>", false},
		{"uppercase hex", "<API_KEY_REDACTED_AB12>", false},
		{"short hash", "<API_KEY_REDACTED_ab1>", false},
		{"long hash", "<API_KEY_REDACTED_ab123>", false},
		{"missing marker", "<API_KEY_ab12>", false},
		{"embedded", "x<API_KEY_REDACTED_ab12>", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsToken(tc.input); got != tc.want {
				t.Errorf("IsToken(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestFindLooseIndex(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  int
	}{
		{"exact token", "before <API_KEY_REDACTED_ab12> after", 1},
		{"digit in prefix", "bucket <S3_KEY_REDACTED_ab12> here", 1},
		{"mutated prefix", "see <APIKEY_ab12> here", 1},
		{"mutated prefix with digit", "see <S3KEY_ab12> here", 1},
		{"two tokens", "<A_REDACTED_ab12><B_REDACTED_cd34>", 2},
		{"no tokens", "plain text with <angle> brackets", 0},
		{"lowercase", "<api_key_redacted_ab12>", 0},
		{"digit-led prefix", "<3S_KEY_REDACTED_ab12>", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spans := FindLooseIndex(tc.input)
			if len(spans) != tc.want {
				t.Errorf("FindLooseIndex(%q) found %d spans, want %d", tc.input, len(spans), tc.want)
			}
		})
	}
}

func TestFindLooseIndex_CoversEveryGeneratedToken(t *testing.T) {
	// Whatever Generate can issue, the restoration scan must find.
	for _, prefix := range []string{"API_KEY", "S3_KEY", "X", "A1_B2_C3"} {
		token := Generate(prefix, "covered-secret-value")
		if !IsToken(token) {
			t.Errorf("IsToken(%q) = false, want true", token)
		}
		if spans := FindLooseIndex("x " + token + " y"); len(spans) != 1 {
			t.Errorf("FindLooseIndex() missed generated token %q", token)
		}
	}
}

func TestValidPrefix(t *testing.T) {
	testCases := []struct {
		prefix string
		want   bool
	}{
		{"API_KEY", true},
		{"S3_KEY", true},
		{"X", true},
		{"", false},
		{"api_key", false},
		{"3S_KEY", false},
		{"_KEY", false},
		{"API KEY", false},
		{"API-KEY", false},
	}

	for _, tc := range testCases {
		if got := ValidPrefix(tc.prefix); got != tc.want {
			t.Errorf("ValidPrefix(%q) = %v, want %v", tc.prefix, got, tc.want)
		}
	}
}

func TestSuffix(t *testing.T) {
	suffix, ok := Suffix("<API_KEY_REDACTED_ab12>")
	if !ok {
		t.Fatal("Suffix() returned not ok for a well-formed token")
	}
	if suffix != "ab12" {
		t.Errorf("Suffix() = %q, want %q", suffix, "ab12")
	}

	if _, ok := Suffix("<API_KEY_REDACTED_>"); ok {
		t.Error("Suffix() should fail without a hash")
	}
	if _, ok := Suffix("no token at all"); ok {
		t.Error("Suffix() should fail on plain text")
	}
}

func TestMaxLen(t *testing.T) {
	got := MaxLen([]string{"API_KEY", "AWS_ACCESS_KEY", "X"})
	want := TokenLen("AWS_ACCESS_KEY")
	if got != want {
		t.Errorf("MaxLen() = %d, want %d", got, want)
	}

	if got := MaxLen(nil); got != Overhead {
		t.Errorf("MaxLen(nil) = %d, want %d", got, Overhead)
	}
}

func TestCouldBePrefix(t *testing.T) {
	maxLen := TokenLen("API_KEY")

	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"lone bracket", "<", true},
		{"partial prefix", "<API", true},
		{"full prefix no hash", "<API_KEY_REDACTED_", true},
		{"partial hash", "<API_KEY_REDACTED_ab", true},
		{"complete token", "<API_KEY_REDACTED_ab12>", false},
		{"lowercase after bracket", "<api", false},
		{"trailing garbage", "<API_KEY!", false},
		{"not at start", "x<API", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CouldBePrefix(tc.input, maxLen); got != tc.want {
				t.Errorf("CouldBePrefix(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestCouldBePrefix_MaxLenBound(t *testing.T) {
	// A candidate as long as a complete token cannot still be a prefix.
	s := "<" + strings.Repeat("A", TokenLen("API_KEY"))
	if CouldBePrefix(s, TokenLen("API_KEY")) {
		t.Errorf("CouldBePrefix(%q) = true, want false past maxLen", s)
	}
}
