package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const listCacheTTL = 5 * time.Minute

// calendarEvent is one row parsed from the AppleScript event dump.
type calendarEvent struct {
	Calendar   string
	Title      string
	StartEpoch int64
	EndEpoch   int64
	AllDay     bool
}

type calendarDayEvent struct {
	Calendar string `json:"calendar"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	AllDay   bool   `json:"allDay"`
}

type calendarDay struct {
	Date   string             `json:"date"`
	Events []calendarDayEvent `json:"events"`
}

// CalendarService shares the Apple Calendar AppleScript plumbing and the
// calendar-name cache across the three calendar tools.
type CalendarService struct {
	names *Cell[[]string]
}

// NewCalendarService creates the shared service.
func NewCalendarService() *CalendarService {
	return &CalendarService{names: NewCell[[]string](listCacheTTL)}
}

func buildListCalendarsScript() []string {
	return []string{
		"on run argv",
		fmt.Sprintf("set recordSep to character id %d", recordSepCharacterID),
		`tell application "Calendar"`,
		"set calendarNames to name of calendars",
		"end tell",
		"set AppleScript's text item delimiters to recordSep",
		"return calendarNames as text",
		"end run",
	}
}

func buildListEventsScript() []string {
	return []string{
		"on run argv",
		fmt.Sprintf("set recordSep to character id %d", recordSepCharacterID),
		fmt.Sprintf("set fieldSep to character id %d", fieldSepCharacterID),
		"set startSeconds to (item 1 of argv) as integer",
		"set endSeconds to (item 2 of argv) as integer",
		`set calendarArg to ""`,
		"if (count of argv) >= 3 then",
		"set calendarArg to item 3 of argv",
		"end if",
		"set maxResults to 0",
		"if (count of argv) >= 4 then",
		"try",
		"set maxResults to (item 4 of argv) as integer",
		"on error",
		"set maxResults to 0",
		"end try",
		"end if",
		"set hasLimit to maxResults > 0",
		"set totalCount to 0",
		"set shouldStop to false",
		"set epochDate to (current date)",
		"set year of epochDate to 1970",
		"set month of epochDate to January",
		"set day of epochDate to 1",
		"set time of epochDate to 0",
		"set startDate to epochDate + startSeconds",
		"set endDate to epochDate + endSeconds",
		"set calendarNames to {}",
		`if calendarArg is not "" then`,
		"set AppleScript's text item delimiters to recordSep",
		"set calendarNames to text items of calendarArg",
		`set AppleScript's text item delimiters to ""`,
		"end if",
		`set output to ""`,
		`tell application "Calendar"`,
		`if calendarArg is "" then`,
		"set targetCalendars to calendars",
		"else",
		"set targetCalendars to {}",
		"repeat with C in calendarNames",
		"try",
		"set end of targetCalendars to calendar (C as string)",
		"end try",
		"end repeat",
		"end if",
		"repeat with Cal in targetCalendars",
		"if shouldStop then exit repeat",
		"set calName to name of Cal",
		"set matchingEvents to (events of Cal whose start date < endDate and end date > startDate)",
		"repeat with E in matchingEvents",
		"set eventTitle to summary of E",
		"set eventStart to start date of E",
		"set eventEnd to end date of E",
		"set allDayFlag to false",
		"try",
		"set allDayFlag to |all day event| of E",
		"on error",
		"set allDayFlag to false",
		"end try",
		"set startEpoch to (eventStart - epochDate)",
		"set endEpoch to (eventEnd - epochDate)",
		`set output to output & "EVT" & fieldSep & calName & fieldSep & eventTitle & fieldSep & (startEpoch as string) & fieldSep & (endEpoch as string) & fieldSep & (allDayFlag as string) & recordSep`,
		"set totalCount to totalCount + 1",
		"if hasLimit and totalCount >= maxResults then",
		"set shouldStop to true",
		"exit repeat",
		"end if",
		"end repeat",
		"end repeat",
		"end tell",
		"return output",
		"end run",
	}
}

func parseCalendarListOutput(output string) []string {
	var names []string
	for _, rec := range splitRecords(output) {
		if name := strings.TrimSpace(rec); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func parseEventsOutput(output string) []calendarEvent {
	var events []calendarEvent
	for _, record := range splitRecords(output) {
		parts := strings.Split(record, fieldSep)
		if len(parts) < 6 || parts[0] != "EVT" {
			continue
		}
		startEpoch, errStart := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
		endEpoch, errEnd := strconv.ParseInt(strings.TrimSpace(parts[4]), 10, 64)
		calendar := strings.TrimSpace(parts[1])
		if calendar == "" || errStart != nil || errEnd != nil {
			continue
		}
		events = append(events, calendarEvent{
			Calendar:   calendar,
			Title:      strings.TrimSpace(parts[2]),
			StartEpoch: startEpoch,
			EndEpoch:   endEpoch,
			AllDay:     strings.EqualFold(strings.TrimSpace(parts[5]), "true"),
		})
	}
	return events
}

func parseDateOnly(input string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", input, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: use YYYY-MM-DD")
	}
	return t, nil
}

func toDateKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func groupEventsByDay(events []calendarEvent) []calendarDay {
	byKey := map[string]*calendarDay{}
	var order []string
	for _, event := range events {
		start := time.Unix(event.StartEpoch, 0)
		key := toDateKey(start)
		day, ok := byKey[key]
		if !ok {
			day = &calendarDay{Date: key, Events: []calendarDayEvent{}}
			byKey[key] = day
			order = append(order, key)
		}
		day.Events = append(day.Events, calendarDayEvent{
			Calendar: event.Calendar,
			Title:    event.Title,
			Start:    start.UTC().Format(time.RFC3339),
			End:      time.Unix(event.EndEpoch, 0).UTC().Format(time.RFC3339),
			AllDay:   event.AllDay,
		})
	}

	sort.Strings(order)
	days := make([]calendarDay, 0, len(order))
	for _, key := range order {
		day := byKey[key]
		sort.Slice(day.Events, func(i, j int) bool { return day.Events[i].Start < day.Events[j].Start })
		days = append(days, *day)
	}
	return days
}

// assertCalendarsInCache fails fast on calendar names that the last listing
// did not contain. An empty or stale cache skips the check.
func (s *CalendarService) assertCalendarsInCache(calendars []string) error {
	cached, ok := s.names.Get()
	if !ok {
		return nil
	}
	var missing []string
	for _, name := range calendars {
		found := false
		for _, c := range cached {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("unknown calendar(s) %q; available calendars: %s",
		strings.Join(missing, ", "), strings.Join(cached, ", "))
}

func (s *CalendarService) listCalendars(ctx context.Context, refresh bool) (names []string, fromCache bool, err error) {
	if cached, ok := s.names.Get(); ok && !refresh {
		return cached, true, nil
	}
	result, err := runOsascript(ctx, buildListCalendarsScript(), nil, "osascript failed to read Calendars")
	if err != nil {
		return nil, false, err
	}
	names = parseCalendarListOutput(result.Stdout)
	s.names.Set(names)
	return names, false, nil
}

type eventListing struct {
	events       []calendarEvent
	limitReached bool
	truncated    bool
}

func (s *CalendarService) listEvents(ctx context.Context, start, end time.Time, calendars []string, maxResults int) (*eventListing, error) {
	if len(calendars) > 0 {
		if err := s.assertCalendarsInCache(calendars); err != nil {
			return nil, err
		}
	}

	argv := []string{
		strconv.FormatInt(start.Unix(), 10),
		strconv.FormatInt(end.Unix(), 10),
		strings.Join(calendars, recordSep),
	}
	if maxResults > 0 {
		argv = append(argv, strconv.Itoa(maxResults))
	} else {
		argv = append(argv, "")
	}

	result, err := runOsascript(ctx, buildListEventsScript(), argv, "osascript failed to read Calendar events")
	if err != nil {
		return nil, err
	}

	events := parseEventsOutput(result.Stdout)
	return &eventListing{
		events:       events,
		limitReached: maxResults > 0 && len(events) >= maxResults,
		truncated:    result.Truncated,
	}, nil
}

// getWeekRange returns the [start, end) range of the week containing
// reference, in local time.
func getWeekRange(reference time.Time, weekStartsOn string) (time.Time, time.Time) {
	ref := reference.Local()
	start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.Local)
	day := int(start.Weekday())
	offset := day
	if weekStartsOn == "monday" {
		offset = (day + 6) % 7
	}
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// CalendarListsTool lists available calendar names.
type CalendarListsTool struct {
	svc *CalendarService
}

// NewCalendarLists creates the calendar.lists tool.
func NewCalendarLists(svc *CalendarService) *CalendarListsTool {
	return &CalendarListsTool{svc: svc}
}

func (t *CalendarListsTool) Name() string { return "calendar.lists" }
func (t *CalendarListsTool) Description() string {
	return "List available Apple Calendar calendars (cached when possible). Use this when you need a calendar name."
}
func (t *CalendarListsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"refresh": {"type": "boolean", "description": "Force refresh calendars instead of using cached data"}
		},
		"additionalProperties": false
	}`)
}

func (t *CalendarListsTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		Refresh bool `json:"refresh"`
	}
	if err := decodeInput(input, &params, true); err != nil {
		return nil, err
	}
	names, fromCache, err := t.svc.listCalendars(ctx, params.Refresh)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"calendars": names,
		"cached":    fromCache,
		"count":     len(names),
	}, nil
}

// CalendarListByDayTool lists events for one local-time day.
type CalendarListByDayTool struct {
	svc *CalendarService
}

// NewCalendarListByDay creates the calendar.listByDay tool.
func NewCalendarListByDay(svc *CalendarService) *CalendarListByDayTool {
	return &CalendarListByDayTool{svc: svc}
}

func (t *CalendarListByDayTool) Name() string { return "calendar.listByDay" }
func (t *CalendarListByDayTool) Description() string {
	return "List Apple Calendar events for a specific day (local time), grouped by day."
}
func (t *CalendarListByDayTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$", "description": "Date in YYYY-MM-DD (local time)"},
			"calendars": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 1, "description": "Optional calendar names to filter by"},
			"maxResults": {"type": "integer", "minimum": 1, "maximum": 2000, "description": "Limit total events returned across calendars"}
		},
		"required": ["date"],
		"additionalProperties": false
	}`)
}

func (t *CalendarListByDayTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		Date       string   `json:"date"`
		Calendars  []string `json:"calendars"`
		MaxResults int      `json:"maxResults"`
	}
	if err := decodeInput(input, &params, true); err != nil {
		return nil, err
	}
	start, err := parseDateOnly(params.Date)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 1)

	listing, err := t.svc.listEvents(ctx, start, end, params.Calendars, params.MaxResults)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"range": map[string]any{
			"start": toDateKey(start),
			"end":   toDateKey(end),
		},
		"calendars":    params.Calendars,
		"days":         groupEventsByDay(listing.events),
		"totalCount":   len(listing.events),
		"limitReached": listing.limitReached,
		"truncated":    listing.truncated,
	}, nil
}

// CalendarWeekTool lists events for the current week.
type CalendarWeekTool struct {
	svc *CalendarService
	now func() time.Time
}

// NewCalendarWeek creates the calendar.week tool.
func NewCalendarWeek(svc *CalendarService) *CalendarWeekTool {
	return &CalendarWeekTool{svc: svc, now: time.Now}
}

func (t *CalendarWeekTool) Name() string { return "calendar.week" }
func (t *CalendarWeekTool) Description() string {
	return "List Apple Calendar events for the current week (local time), grouped by day."
}
func (t *CalendarWeekTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"weekStartsOn": {"type": "string", "enum": ["monday", "sunday"], "description": "Week start day for the range (default: monday)"},
			"calendars": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 1, "description": "Optional calendar names to filter by"},
			"maxResults": {"type": "integer", "minimum": 1, "maximum": 2000, "description": "Limit total events returned across calendars"}
		},
		"additionalProperties": false
	}`)
}

func (t *CalendarWeekTool) Execute(ctx context.Context, input map[string]any, _ Context) (any, error) {
	var params struct {
		WeekStartsOn string   `json:"weekStartsOn"`
		Calendars    []string `json:"calendars"`
		MaxResults   int      `json:"maxResults"`
	}
	if err := decodeInput(input, &params, true); err != nil {
		return nil, err
	}
	if params.WeekStartsOn == "" {
		params.WeekStartsOn = "monday"
	}
	if params.WeekStartsOn != "monday" && params.WeekStartsOn != "sunday" {
		return nil, fmt.Errorf("weekStartsOn must be monday or sunday")
	}

	start, end := getWeekRange(t.now(), params.WeekStartsOn)
	listing, err := t.svc.listEvents(ctx, start, end, params.Calendars, params.MaxResults)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"range": map[string]any{
			"start":        toDateKey(start),
			"end":          toDateKey(end),
			"weekStartsOn": params.WeekStartsOn,
		},
		"calendars":    params.Calendars,
		"days":         groupEventsByDay(listing.events),
		"totalCount":   len(listing.events),
		"limitReached": listing.limitReached,
		"truncated":    listing.truncated,
	}, nil
}
