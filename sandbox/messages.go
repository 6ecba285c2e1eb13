package sandbox

import "fmt"

// Messages holds every user-facing string the engine produces.
type Messages struct {
	MissingFields       string
	UnsupportedLanguage string
	Timeout             string
	Completed           string
	MissingEntryPoint   string
	ScriptFailed        string
	ExitStatus          string // format verb receives the exit code
	Internal            string // format verb receives the panic value
}

// Locales known to MessagesFor.
const (
	LocaleEnglish = "en"
	LocaleKorean  = "ko"
)

var catalog = map[string]Messages{
	LocaleEnglish: {
		MissingFields:       "both code and language are required",
		UnsupportedLanguage: "unsupported language",
		Timeout:             "execution time exceeded",
		Completed:           "execution completed",
		MissingEntryPoint:   "could not find a public class declaration in the source",
		ScriptFailed:        "an error occurred while running the code",
		ExitStatus:          "process exited with status %d",
		Internal:            "internal error: %v",
	},
	LocaleKorean: {
		MissingFields:       "코드와 언어를 모두 제공해야 합니다.",
		UnsupportedLanguage: "지원되지 않는 언어입니다.",
		Timeout:             "코드 실행 시간이 초과되었습니다.",
		Completed:           "실행 완료",
		MissingEntryPoint:   "Java 코드에서 public class 이름을 찾을 수 없습니다.",
		ScriptFailed:        "코드 실행 중 오류가 발생했습니다.",
		ExitStatus:          "프로세스가 상태 코드 %d로 종료되었습니다.",
		Internal:            "서버 오류: %v",
	},
}

// MessagesFor returns the catalog for locale.
func MessagesFor(locale string) (Messages, error) {
	m, ok := catalog[locale]
	if !ok {
		return Messages{}, fmt.Errorf("unsupported locale: %s", locale)
	}
	return m, nil
}

// DefaultMessages returns the English catalog.
func DefaultMessages() Messages {
	return catalog[LocaleEnglish]
}
