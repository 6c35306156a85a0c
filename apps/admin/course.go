package main

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/trezcool/mwalimu/core/course"
)

type (
	outlineCourse struct {
		ID       string           `yaml:"id"`
		Title    string           `yaml:"title"`
		Slug     string           `yaml:"slug"`
		Status   string           `yaml:"status"`
		Chapters []outlineChapter `yaml:"chapters"`
	}

	outlineChapter struct {
		Position int             `yaml:"position"`
		ID       string          `yaml:"id"`
		Title    string          `yaml:"title"`
		Lessons  []outlineLesson `yaml:"lessons,omitempty"`
	}

	outlineLesson struct {
		Position int    `yaml:"position"`
		ID       string `yaml:"id"`
		Title    string `yaml:"title"`
		VideoKey string `yaml:"video_key,omitempty"`
	}
)

func newOutline(crs course.Course) outlineCourse {
	out := outlineCourse{
		ID:       crs.ID,
		Title:    crs.Title,
		Slug:     crs.Slug,
		Status:   crs.Status,
		Chapters: make([]outlineChapter, 0, len(crs.Chapters)),
	}
	for _, ch := range crs.Chapters {
		oc := outlineChapter{Position: ch.Position, ID: ch.ID, Title: ch.Title}
		for _, ls := range ch.Lessons {
			oc.Lessons = append(oc.Lessons, outlineLesson{Position: ls.Position, ID: ls.ID, Title: ls.Title, VideoKey: ls.VideoKey})
		}
		out.Chapters = append(out.Chapters, oc)
	}
	return out
}

func (cli *commandLine) outline(ctx context.Context, courseID string) error {
	crs, err := cli.courseSvc.GetCourse(ctx, operator, courseID)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cli.out)
	enc.SetIndent(2)
	if err = enc.Encode(newOutline(crs)); err != nil {
		return err
	}
	return enc.Close()
}

func (cli *commandLine) resequence(ctx context.Context, courseID string) error {
	moved, err := cli.courseSvc.ResequenceCourse(ctx, operator, courseID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d item(s) repositioned\n", moved)
	if moved > 0 {
		fmt.Fprintln(cli.out, "API servers serve the new positions once their cached course page expires")
	}
	return nil
}
