package translator

import (
	"fmt"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/internalerr"
)

func unsupportedLanguage(language string) error {
	return internalerr.New(internalerr.KindUnsupportedLanguage,
		fmt.Sprintf("language %q has no registered text-processor set", language))
}
