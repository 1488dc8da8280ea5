package commonModels

import "testing"

func TestParseMood(t *testing.T) {
	tests := []struct {
		reply string
		want  Mood
	}{
		{"happy", MoodHappy},
		{"Sad.", MoodSad},
		{"The person looks ANGRY, maybe nervous", MoodAngry},
		{"I think they are confused", MoodConfused},
		{"unhappy", MoodNeutral},
		{"", MoodNeutral},
		{"The mood is: nervous\n", MoodNervous},
		{"ecstatic", MoodNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			if got := ParseMood(tt.reply); got != tt.want {
				t.Errorf("ParseMood(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}

func TestMarkDegradedIsIdempotent(t *testing.T) {
	var result AnswerResult
	result.MarkDegraded("speech")
	result.MarkDegraded("vision")
	result.MarkDegraded("speech")

	if len(result.Degraded) != 2 {
		t.Fatalf("expected 2 degraded stages, got %v", result.Degraded)
	}
}
