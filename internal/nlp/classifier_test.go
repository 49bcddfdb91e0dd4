package nlp

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

const sample = `ДОГОВОР ПОДРЯДА №03.07/24-К
г. Самара «03» июля 2024 г.
ООО «АТЛАНТ», в лице Генерального директора Бикбулатова Марата Наильевича,
разрешение от 29.07.2021г. Цена составляет 4728 960,00 руб.
Подписи: Власов Е.Е. / Бикбулатов М.Н.; повторно ООО «АТЛАНТ»`

func TestHeuristicClassify(t *testing.T) {
	h := NewHeuristic(nil)
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := h.Classify(context.Background(), sample)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := Entities{
		ORG:    {"ООО «АТЛАНТ»"},
		DATE:   {"«03» июля 2024", "29.07.2021"},
		MONEY:  {"4728 960,00 руб."},
		PERSON: {"Бикбулатова Марата Наильевича", "Власов Е.Е.", "Бикбулатов М.Н."},
	}
	for cat, w := range want {
		if !reflect.DeepEqual(got[cat], w) {
			t.Errorf("%s = %q, want %q", cat, got[cat], w)
		}
	}
}

func TestHeuristicNotLoaded(t *testing.T) {
	h := NewHeuristic(nil)
	_, err := h.Classify(context.Background(), sample)
	if !errors.Is(err, common.ErrEngineUnavailable) {
		t.Fatalf("err = %v, want engine unavailable", err)
	}

	_ = h.Load(context.Background())
	_ = h.Close()
	if _, err := h.Classify(context.Background(), sample); !errors.Is(err, common.ErrEngineUnavailable) {
		t.Fatalf("after Close err = %v, want engine unavailable", err)
	}
}
