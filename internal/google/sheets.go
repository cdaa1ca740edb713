package google

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"stellaris/internal/events"
	"stellaris/internal/export"
	"stellaris/internal/model"
)

const lastColumn = "O"

func headerRow() []interface{} {
	row := make([]interface{}, len(export.BookingColumns))
	for i, c := range export.BookingColumns {
		row[i] = c
	}
	return row
}

// SheetsService mirrors the booking list into a Google spreadsheet, one row per booking.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	sheetName     string
	log           zerolog.Logger

	mu       sync.Mutex // serializes upserts
	rowCache map[string]int
	cacheMu  sync.RWMutex
	wg       sync.WaitGroup
}

// NewSheetsService authenticates with a service-account key file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return NewSheetsServiceWithOptions(ctx, spreadsheetID, sheetName, logger, option.WithCredentials(creds))
}

// NewSheetsServiceWithOptions builds the client from explicit options.
func NewSheetsServiceWithOptions(ctx context.Context, spreadsheetID, sheetName string, logger zerolog.Logger, opts ...option.ClientOption) (*SheetsService, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	if sheetName == "" {
		sheetName = "Bookings"
	}
	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           logger.With().Str("component", "sheets").Logger(),
		rowCache:      make(map[string]int),
	}, nil
}

// Register subscribes the mirror to booking events.
func (s *SheetsService) Register(bus *events.EventBus) {
	bus.Subscribe(s.Handle, events.BookingTypes...)
}

// Handle upserts the booking carried by e in the background.
func (s *SheetsService) Handle(e events.Event) error {
	var p events.BookingPayload
	if err := e.Decode(&p); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.UpsertBooking(ctx, p.Booking); err != nil {
			s.log.Error().Err(err).Str("booking_id", p.Booking.ID).Msg("Failed to mirror booking")
		}
	}()
	return nil
}

// Wait blocks until background upserts finish.
func (s *SheetsService) Wait() {
	s.wg.Wait()
}

// WarmUp writes the header row when the sheet is empty and loads the row index of existing bookings.
func (s *SheetsService) WarmUp(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ids: %w", err)
	}

	if len(resp.Values) == 0 {
		vr := &sheets.ValueRange{Values: [][]interface{}{headerRow()}}
		_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, s.rowRange(1), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		return nil
	}

	s.ClearCache()
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id != "" {
			s.setCachedRow(id, i+1)
		}
	}
	return nil
}

// UpsertBooking rewrites the booking's row, appending one when the booking is not in the sheet yet.
func (s *SheetsService) UpsertBooking(ctx context.Context, b model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vr := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(&b)}}

	if row, ok := s.getCachedRow(b.ID); ok {
		_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, s.rowRange(row), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		return nil
	}

	resp, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, s.a1("A:"+lastColumn), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	if resp.Updates != nil {
		if row, ok := parseRow(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(b.ID, row)
		}
	}
	return nil
}

func (s *SheetsService) rowRange(row int) string {
	return s.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
}

// a1 prefixes cells with the quoted sheet name.
func (s *SheetsService) a1(cells string) string {
	return "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'!" + cells
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache forgets every known row.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

var rangeRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// parseRow extracts the first row number of an A1 range such as "Bookings!A7:O7".
func parseRow(a1 string) (int, bool) {
	m := rangeRowRe.FindStringSubmatch(a1)
	if m == nil {
		return 0, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return row, true
}

func bookingRowValues(b *model.Booking) []interface{} {
	return export.BookingRow(*b)
}
