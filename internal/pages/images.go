package pages

import "fmt"

// ImageID はメンバーページに表示する画像の識別子です。
type ImageID int

const (
	Image1 ImageID = iota + 1
	Image2
	Image3
)

var memberImages = [...]ImageID{Image1, Image2, Image3}

// Pick は seed から画像を1つ選びます。seed が一様なら各画像は等確率で選ばれます。
func Pick(seed uint64) ImageID {
	return memberImages[seed%uint64(len(memberImages))]
}

// Path は公開ディレクトリ上の画像パスを返します。
func (id ImageID) Path() string {
	return fmt.Sprintf("/img%d.gif", int(id))
}
