package planning

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

func jobsManifest(scenes ...string) Manifest {
	m := DefaultManifest(0)
	m.Prompts = testPrompts()
	m.NoInvention = false
	m.SceneRefs = scenes
	m.StyleRefs = []string{"style/sheet-a.png", "style/sheet-b.png"}
	return m
}

func TestBuildGenerationJobsEmptySceneRefs(t *testing.T) {
	m := jobsManifest()
	_, err := BuildGenerationJobs(m, domain.StageStyle, domain.TimeDay, domain.WeatherClear)
	if !errors.Is(err, ErrNoSceneReferences) {
		t.Fatalf("err = %v, want ErrNoSceneReferences", err)
	}
}

func TestBuildGenerationJobsOnePerScene(t *testing.T) {
	m := jobsManifest("scenes/Plaza Night.png", "scenes/alley.png")
	jobs, err := BuildGenerationJobs(m, domain.StageStyle, domain.TimeDay, domain.WeatherClear)
	if err != nil {
		t.Fatalf("BuildGenerationJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want one per scene ref", len(jobs))
	}
	wantInputs := []string{"scenes/Plaza Night.png", "style/sheet-a.png", "style/sheet-b.png"}
	if !reflect.DeepEqual(jobs[0].InputImages, wantInputs) {
		t.Fatalf("InputImages = %v, want %v", jobs[0].InputImages, wantInputs)
	}
	if jobs[0].ID != "style_1_plaza_night" {
		t.Fatalf("ID = %q, want style_1_plaza_night", jobs[0].ID)
	}
	if jobs[1].ID != "style_2_alley" {
		t.Fatalf("ID = %q, want style_2_alley", jobs[1].ID)
	}
	if jobs[0].Prompt != "BASE" {
		t.Fatalf("Prompt = %q, want composed prompt", jobs[0].Prompt)
	}
	if jobs[0].Mode != "style" {
		t.Fatalf("Mode = %q, want style", jobs[0].Mode)
	}
	if jobs[0].Time != "" || jobs[0].Weather != "" {
		t.Fatalf("style stage should not tag time/weather: %+v", jobs[0])
	}
}

func TestBuildGenerationJobsWeatherTags(t *testing.T) {
	m := jobsManifest("scenes/alley.png")
	jobs, err := BuildGenerationJobs(m, domain.StageWeather, domain.TimeNight, domain.WeatherRain)
	if err != nil {
		t.Fatalf("BuildGenerationJobs: %v", err)
	}
	if jobs[0].Time != "night" || jobs[0].Weather != "rain" {
		t.Fatalf("weather stage should tag both selectors: %+v", jobs[0])
	}
	if jobs[0].Prompt != "BASE NIGHT RAIN" {
		t.Fatalf("Prompt = %q, want full weather prompt", jobs[0].Prompt)
	}
}

func TestSanitizeStem(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"scenes/Plaza Night.png", "plaza_night"},
		{"scenes/UPPER-case_01.jpg", "upper-case_01"},
		{"a/b/weird***name!!.png", "weird_name"},
		{"trailing__.png", "trailing"},
		{"scenes/49 -- final --.png", "49_--_final_--"},
	}
	for _, tc := range cases {
		if got := sanitizeStem(tc.in); got != tc.want {
			t.Fatalf("sanitizeStem(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJobIDFallsBackToOrdinal(t *testing.T) {
	m := jobsManifest("scenes/念.png")
	jobs, err := BuildGenerationJobs(m, domain.StageTime, domain.TimeDay, domain.WeatherClear)
	if err != nil {
		t.Fatalf("BuildGenerationJobs: %v", err)
	}
	if jobs[0].ID != "time_1" {
		t.Fatalf("ID = %q, want ordinal fallback time_1", jobs[0].ID)
	}
}
