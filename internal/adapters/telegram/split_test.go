package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessageRespectsLimit(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(strings.Repeat("о", 3500))
	builder.WriteString("\n\n")
	builder.WriteString(strings.Repeat("б", 1500))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("в", 400))

	parts := SplitMessage(builder.String())
	if len(parts) != 2 {
		t.Fatalf("ожидалось 2 части, получено %d", len(parts))
	}

	for i, part := range parts {
		if length := len([]rune(part)); length > messageLimit {
			t.Fatalf("часть %d превышает лимит: %d", i, length)
		}
	}

	if parts[0] != strings.Repeat("о", 3500) {
		t.Fatalf("неожиданное содержимое первой части")
	}
	if !strings.HasSuffix(parts[1], strings.Repeat("в", 400)) {
		t.Fatalf("вторая часть должна заканчиваться хвостовым блоком")
	}
}

func TestSplitMessageShortText(t *testing.T) {
	text := "🚗 Новое объявление!"
	parts := SplitMessage(text)
	if len(parts) != 1 {
		t.Fatalf("ожидалась одна часть, получено %d", len(parts))
	}
	if parts[0] != text {
		t.Fatalf("неожиданный текст: %q", parts[0])
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage("  \n \n "); len(parts) != 0 {
		t.Fatalf("для пустого текста частей быть не должно, получено %d", len(parts))
	}
}
