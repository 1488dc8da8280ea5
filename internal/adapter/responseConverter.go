package adapter

import (
	"encoding/base64"

	"github.com/akolanti/DocTalk/internal/api"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
)

func ToUploadResponse(doc commonModels.Document) api.UploadResponse {
	return api.UploadResponse{
		Id:   doc.Id,
		UUID: doc.Id,
	}
}

// ToVisemeData never returns nil so the field always encodes as a JSON array.
func ToVisemeData(visemes []commonModels.Viseme) []api.VisemeData {
	out := make([]api.VisemeData, 0, len(visemes))
	for _, v := range visemes {
		out = append(out, api.VisemeData{Start: v.Start, End: v.End, Value: v.Shape})
	}
	return out
}

func ToQnAResponse(result commonModels.AnswerResult) api.QnAResponse {
	return api.QnAResponse{
		Answer:     result.Text,
		Audio:      encodeAudio(result.Audio),
		VisemeData: ToVisemeData(result.Visemes),
		Mood:       string(result.Mood),
		Degraded:   result.Degraded,
	}
}

func ToAnalyzeImageResponse(result commonModels.AnswerResult, image []byte) api.AnalyzeImageResponse {
	return api.AnalyzeImageResponse{
		Data:       result.Text,
		Audio:      encodeAudio(result.Audio),
		VisemeData: ToVisemeData(result.Visemes),
		Mood:       string(result.Mood),
		Image:      base64.StdEncoding.EncodeToString(image),
		Degraded:   result.Degraded,
	}
}

func ToUploadedDocsResponse(ids []string) api.UploadedDocsResponse {
	if ids == nil {
		ids = []string{}
	}
	return api.UploadedDocsResponse{Docs: ids}
}

func ToErrorResponse(message string) api.ErrorResponse {
	return api.ErrorResponse{Error: message}
}

func encodeAudio(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}
