package useragent

import (
	"fmt"
	"runtime"

	"github.com/LucasSabena/codemobile-sub001/pkg/version"
)

var Header = fmt.Sprintf("Codemobile/%s (%s; %s)", version.Version, runtime.GOOS, runtime.GOARCH)
