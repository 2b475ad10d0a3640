package vision

import (
	pkgerrors "github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var dictionaries = map[string]gocv.ArucoDictionaryCode{
	"4x4_50":         gocv.ArucoDict4x4_50,
	"4x4_100":        gocv.ArucoDict4x4_100,
	"4x4_250":        gocv.ArucoDict4x4_250,
	"4x4_1000":       gocv.ArucoDict4x4_1000,
	"5x5_50":         gocv.ArucoDict5x5_50,
	"5x5_100":        gocv.ArucoDict5x5_100,
	"5x5_250":        gocv.ArucoDict5x5_250,
	"5x5_1000":       gocv.ArucoDict5x5_1000,
	"6x6_50":         gocv.ArucoDict6x6_50,
	"6x6_100":        gocv.ArucoDict6x6_100,
	"6x6_250":        gocv.ArucoDict6x6_250,
	"6x6_1000":       gocv.ArucoDict6x6_1000,
	"7x7_50":         gocv.ArucoDict7x7_50,
	"7x7_100":        gocv.ArucoDict7x7_100,
	"7x7_250":        gocv.ArucoDict7x7_250,
	"7x7_1000":       gocv.ArucoDict7x7_1000,
	"aruco_original": gocv.ArucoDictArucoOriginal,
}

func dictionaryCode(name string) (gocv.ArucoDictionaryCode, error) {
	code, ok := dictionaries[name]
	if !ok {
		return 0, pkgerrors.Errorf("unsupported marker dictionary %q", name)
	}
	return code, nil
}
