package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
	"golang.org/x/text/language"

	"github.com/sambeau/quip/pkg/quip/object"
)

// dateTimeMethods is the declarative registry for DateTime methods.
var dateTimeMethods = MethodRegistry{
	"year": {
		Fn:          dateTimeField(func(t time.Time) int64 { return int64(t.Year()) }),
		Arity:       "0",
		Description: "Calendar year",
	},
	"month": {
		Fn:          dateTimeField(func(t time.Time) int64 { return int64(t.Month()) }),
		Arity:       "0",
		Description: "Month number, 1-12",
	},
	"day": {
		Fn:          dateTimeField(func(t time.Time) int64 { return int64(t.Day()) }),
		Arity:       "0",
		Description: "Day of the month",
	},
	"unix": {
		Fn:          dateTimeField(func(t time.Time) int64 { return t.Unix() }),
		Arity:       "0",
		Description: "Seconds since the Unix epoch",
	},
	"weekday": {
		Fn:          dateTimeWeekday,
		Arity:       "0-1",
		Description: "Name of the weekday in the run's locale, or the locale given",
	},
	"adddays": {
		Fn:          dateTimeAddDays,
		Arity:       "1",
		Description: "The date-time n days later (earlier for negative n)",
	},
	"format": {
		Fn:          dateTimeFormat,
		Arity:       "0-2",
		Description: "Localized text: style short, medium, long (default) or full, or a Go layout; optional locale",
	},
}

func dateTimeValue(o object.Object) (time.Time, error) {
	d, ok := o.(*object.DateTime)
	if !ok {
		return time.Time{}, fmt.Errorf("expected a DateTime, got %s", o.Type())
	}
	return d.Value, nil
}

func dateTimeField(field func(time.Time) int64) MethodFunc {
	return func(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
		t, err := dateTimeValue(recv)
		if err != nil {
			return nil, err
		}
		return &object.Integer{Value: field(t)}, nil
	}
}

func dateTimeWeekday(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	t, err := dateTimeValue(recv)
	if err != nil {
		return nil, err
	}
	tag, err := localeArg(args, 0, ctx)
	if err != nil {
		return nil, err
	}
	return &object.String{Value: monday.Format(t, "Monday", mondayLocale(tag))}, nil
}

func dateTimeAddDays(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	t, err := dateTimeValue(recv)
	if err != nil {
		return nil, err
	}
	n, ok := args[0].(*object.Integer)
	if !ok {
		return nil, fmt.Errorf("adddays needs an Int, got %s", args[0].Type())
	}
	return &object.DateTime{Value: t.AddDate(0, 0, int(n.Value))}, nil
}

func dateTimeFormat(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	t, err := dateTimeValue(recv)
	if err != nil {
		return nil, err
	}
	style := "long"
	if len(args) > 0 {
		if style, err = stringValue(args[0], "style"); err != nil {
			return nil, err
		}
	}
	tag, err := localeArg(args, 1, ctx)
	if err != nil {
		return nil, err
	}
	return &object.String{Value: FormatDateTime(t, style, tag)}, nil
}

// FormatDateTime renders t in the named style (short, medium, long, full) or,
// for any other style, treats it as a Go layout. Names are localised for tag.
func FormatDateTime(t time.Time, style string, tag language.Tag) string {
	loc := mondayLocale(tag)
	return monday.Format(t, layoutForStyle(style, loc), loc)
}

// ParseDateTime reads a date or date-time in any layout dateparse knows,
// preferring month-first for ambiguous numeric dates in the US locale.
func ParseDateTime(text string, tag language.Tag) (time.Time, error) {
	monthFirst := mondayLocale(tag) == monday.LocaleEnUS
	return dateparse.ParseIn(strings.TrimSpace(text), time.UTC, dateparse.PreferMonthFirst(monthFirst))
}

// mondayLocale maps a language tag to the closest monday locale.
func mondayLocale(tag language.Tag) monday.Locale {
	locale := strings.ToLower(strings.ReplaceAll(tag.String(), "-", "_"))

	localeMap := map[string]monday.Locale{
		"en":    monday.LocaleEnUS,
		"en_us": monday.LocaleEnUS,
		"en_gb": monday.LocaleEnGB,
		"de":    monday.LocaleDeDE,
		"de_de": monday.LocaleDeDE,
		"fr":    monday.LocaleFrFR,
		"fr_fr": monday.LocaleFrFR,
		"fr_ca": monday.LocaleFrCA,
		"es":    monday.LocaleEsES,
		"it":    monday.LocaleItIT,
		"pt":    monday.LocalePtPT,
		"pt_br": monday.LocalePtBR,
		"nl":    monday.LocaleNlNL,
		"nl_be": monday.LocaleNlBE,
		"ru":    monday.LocaleRuRU,
		"pl":    monday.LocalePlPL,
		"sv":    monday.LocaleSvSE,
		"da":    monday.LocaleDaDK,
		"fi":    monday.LocaleFiFI,
		"nb":    monday.LocaleNbNO,
		"ja":    monday.LocaleJaJP,
		"zh":    monday.LocaleZhCN,
		"zh_tw": monday.LocaleZhTW,
		"ko":    monday.LocaleKoKR,
		"tr":    monday.LocaleTrTR,
		"uk":    monday.LocaleUkUA,
	}

	if loc, ok := localeMap[locale]; ok {
		return loc
	}
	if lang, _, found := strings.Cut(locale, "_"); found {
		if loc, ok := localeMap[lang]; ok {
			return loc
		}
	}
	return monday.LocaleEnUS
}

// layoutForStyle returns the Go layout for a named style. Anything that is not
// a style name is taken as a layout.
func layoutForStyle(style string, loc monday.Locale) string {
	switch style {
	case "short":
		switch loc {
		case monday.LocaleEnUS:
			return "1/2/06"
		case monday.LocaleDeDE:
			return "02.01.06"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "06/1/2"
		default:
			return "02/01/06"
		}
	case "medium":
		switch loc {
		case monday.LocaleEnUS:
			return "Jan 2, 2006"
		case monday.LocaleDeDE:
			return "2. Jan. 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日"
		default:
			return "2 Jan 2006"
		}
	case "long":
		switch loc {
		case monday.LocaleEnUS:
			return "January 2, 2006"
		case monday.LocaleDeDE:
			return "2. January 2006"
		case monday.LocaleEsES:
			return "2 de January de 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日"
		default:
			return "2 January 2006"
		}
	case "full":
		switch loc {
		case monday.LocaleEnUS:
			return "Monday, January 2, 2006"
		case monday.LocaleDeDE:
			return "Monday, 2. January 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日 Monday"
		default:
			return "Monday, 2 January 2006"
		}
	}
	return style
}
