package conversation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrBlockedInput is returned when an utterance looks like an attempt to
	// steer the model away from the clinic prompt.
	ErrBlockedInput = errors.New("conversation: utterance blocked by prompt guard")
	// ErrUnsafeReply is returned when a model reply discloses internals.
	ErrUnsafeReply = errors.New("conversation: llm reply blocked by output guard")
)

type guardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

const (
	blockScore     = 0.7
	extraSignalAdd = 0.1
)

// Patients write in Spanish; English variants are kept because injection
// payloads are usually copied verbatim.
var inputPatterns = []guardPattern{
	{regexp.MustCompile(`(?i)ignor(a|e|ar)\s+(todas\s+)?(las\s+)?(instrucciones|reglas)\s+(anteriores|previas)`), "injection:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)(olvida|olvide)\s+(todas\s+)?(tus|las)\s+(instrucciones|reglas)`), "injection:forget_instructions", 0.9},
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|rules?|prompts?)`), "injection:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)(ahora\s+eres|a\s+partir\s+de\s+ahora\s+eres|you\s+are\s+now)\s+`), "injection:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|modo\s+desarrollador|developer\s*mode`), "injection:jailbreak_keyword", 0.9},
	{regexp.MustCompile(`(?i)(muestra|revela|dime|repite)\s+(tu|el)\s+(prompt|mensaje\s+del\s+sistema|instrucciones)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat)\s+(your\s+)?(system\s+prompt|instructions)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(datos|nombres|tel[eé]fonos|citas)\s+de\s+(otros|los\s+dem[aá]s)\s+pacientes`), "exfiltration:patient_data", 0.8},
	{regexp.MustCompile(`(?i)\[/?INST\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|###\s*(system|sistema)\s*:`), "context:special_tokens", 0.9},
	{regexp.MustCompile(`<\s*(script|iframe|object|embed|svg)\b`), "obfuscation:html_injection", 0.6},
	{regexp.MustCompile(`(?i)base64\s*(encode|decode|:)`), "obfuscation:encoding", 0.5},
}

// GuardResult is the verdict on one utterance.
type GuardResult struct {
	Blocked bool
	Score   float64
	Reasons []string
}

// ScanInput scores utterance for prompt injection. Each extra signal adds
// to the strongest one.
func ScanInput(utterance string) GuardResult {
	if strings.TrimSpace(utterance) == "" {
		return GuardResult{}
	}
	var reasons []string
	best := 0.0
	for _, p := range inputPatterns {
		if p.re.MatchString(utterance) {
			reasons = append(reasons, p.reason)
			if p.weight > best {
				best = p.weight
			}
		}
	}
	score := best
	if len(reasons) > 1 {
		score = min(1.0, best+float64(len(reasons)-1)*extraSignalAdd)
	}
	return GuardResult{Blocked: score >= blockScore, Score: score, Reasons: reasons}
}

type leakPattern struct {
	re     *regexp.Regexp
	reason string
	block  bool
}

var outputPatterns = []leakPattern{
	{regexp.MustCompile(`(?i)(mi|mis)\s+(prompt|instrucciones)\s+(es|son|dice|dicen)`), "leak:instructions", true},
	{regexp.MustCompile(`(?i)my\s+(system\s+)?(prompt|instructions?)\s+(is|are|says)`), "leak:instructions", true},
	{regexp.MustCompile(`(?i)(powered by|basado en|funciono con)\s+(Claude|GPT|OpenAI|Anthropic|Bedrock|Gemini)`), "leak:tech_stack", true},
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret|token)\s*[:=]\s*\S+`), "leak:credential", true},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "leak:aws_key", true},
	{regexp.MustCompile(`(?i)(postgres|redis)://\S+`), "leak:database_url", true},
	{regexp.MustCompile(`(?i)/admin/|/metrics\b`), "leak:internal_path", true},
	{regexp.MustCompile(`(?i)\b(soy|i am|i'm)\s+(un|una|an?)\s+(modelo de lenguaje|inteligencia artificial|language model|AI)\b`), "leak:ai_identity", false},
}

var aiIdentitySentence = regexp.MustCompile(`(?i)[^.!?]*\b(soy|i am|i'm)\s+(un|una|an?)\s+(modelo de lenguaje|inteligencia artificial|language model|AI)\b[^.!?]*[.!?]?\s*`)

// ScanOutput checks a model reply before it reaches the patient. It returns
// the reply to send, with self-descriptions removed, or ErrUnsafeReply.
func ScanOutput(reply string) (string, []string, error) {
	var reasons []string
	block := false
	for _, p := range outputPatterns {
		if p.re.MatchString(reply) {
			reasons = append(reasons, p.reason)
			block = block || p.block
		}
	}
	if block {
		return "", reasons, ErrUnsafeReply
	}
	if len(reasons) == 0 {
		return reply, nil, nil
	}
	cleaned := strings.TrimSpace(aiIdentitySentence.ReplaceAllString(reply, ""))
	if cleaned == "" {
		return "", reasons, ErrUnsafeReply
	}
	return cleaned, reasons, nil
}
