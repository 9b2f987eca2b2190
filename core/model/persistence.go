package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// インターフェース型のフィールドを含むモデル（スタックコンテナ等）を保存する場合、
// 具象型は各パッケージの init で gob.Register 済みである必要がある。
//
// 使用例:
//
//	err := model.SaveModel(container, "stack.gob")
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", filename)
	}
	defer file.Close()

	return SaveModelToWriter(m, file)
}

// LoadModel はファイルからモデルを読み込む。m はポインタでなければならない
//
// 使用例:
//
//	var container ensemble.StackContainer
//	err := model.LoadModel(&container, "stack.gob")
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(m, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
