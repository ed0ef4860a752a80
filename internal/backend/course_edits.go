package backend

import (
	"fmt"
	"net/http"

	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

// CourseEdit names a structural change to a course template.
type CourseEdit string

const (
	AddSubject    CourseEdit = "add_subject"
	UpdateSubject CourseEdit = "update_subject"
	DeleteSubject CourseEdit = "delete_subject"
	AddTopic      CourseEdit = "add_topic"
	UpdateTopic   CourseEdit = "update_topic"
	DeleteTopic   CourseEdit = "delete_topic"
	AddLecture    CourseEdit = "add_lecture"
	UpdateLecture CourseEdit = "update_lecture"
	DeleteLecture CourseEdit = "delete_lecture"
)

type route struct {
	method string
	path   string
}

var courseEditRoutes = map[CourseEdit]route{
	AddSubject:    {http.MethodPost, "/course/add-subject"},
	UpdateSubject: {http.MethodPut, "/course/update/subject"},
	DeleteSubject: {http.MethodDelete, "/course/delete/subject"},
	AddTopic:      {http.MethodPost, "/course/add-topic"},
	UpdateTopic:   {http.MethodPut, "/course/update/topic"},
	DeleteTopic:   {http.MethodDelete, "/course/delete/topic"},
	AddLecture:    {http.MethodPost, "/course/add-lecture"},
	UpdateLecture: {http.MethodPut, "/course/update/lecture"},
	DeleteLecture: {http.MethodDelete, "/course/delete/lecture"},
}

func errUnknownEdit(edit CourseEdit) error {
	return appErrors.Wrap(fmt.Errorf("unknown course edit %q", edit), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}
