package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"offerlens/internal/model"
	"offerlens/internal/normalize"
)

// LoadTranscript reads a transcript file. The position of each record in the
// file becomes its global index.
func LoadTranscript(ctx context.Context, path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := ReadTranscript(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func ReadTranscript(ctx context.Context, r io.Reader) ([]model.Event, error) {
	parser := NewParser()
	var events []model.Event
	err := ReadLines(ctx, r, func(lineNo int, line string) error {
		fields, err := parser.ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if fields == nil {
			return nil
		}
		ev, err := normalize.Normalize(*fields, len(events))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func LoadPortfolio(ctx context.Context, path string) ([]model.Offer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var offers []model.Offer
	err = ReadLines(ctx, f, func(lineNo int, line string) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		var rec normalize.OfferRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		offers = append(offers, normalize.Offer(rec))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}

// LoadProfiles reads the profile file, skipping customers without gender or
// income the way the segmentation requires.
func LoadProfiles(ctx context.Context, path string, logger *slog.Logger) ([]model.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var profiles []model.Profile
	dropped := 0
	err = ReadLines(ctx, f, func(lineNo int, line string) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		var rec normalize.ProfileRecord
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		p, ok, err := normalize.Profile(rec)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		if !ok {
			dropped++
			return nil
		}
		profiles = append(profiles, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if logger != nil && dropped > 0 {
		logger.Info("profiles without gender or income dropped", "count", dropped)
	}
	return profiles, nil
}
